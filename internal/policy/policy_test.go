package policy_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actor(role models.Role, org *uuid.UUID) *policy.Actor {
	return &policy.Actor{UserID: uuid.New(), Role: role, OrganizationID: org}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestAuthorize_Table(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()

	super := actor(models.RoleSuperAdmin, nil)
	adminA := actor(models.RoleOrgAdmin, ptr(orgA))
	editorA := actor(models.RoleOrgEditor, ptr(orgA))

	tests := []struct {
		name    string
		actor   *policy.Actor
		req     policy.Request
		wantErr error
	}{
		{"super reads any org", super, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgB)}, nil},
		{"super writes unscoped", super, policy.Request{Action: policy.ActionWrite}, nil},
		{"super creates org", super, policy.Request{Action: policy.ActionCreateOrg}, nil},
		{"super manages org", super, policy.Request{Action: policy.ActionManageOrg, OrganizationID: ptr(orgA)}, nil},
		{"super reads audit", super, policy.Request{Action: policy.ActionReadAudit}, nil},

		{"admin reads own org", adminA, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgA)}, nil},
		{"admin writes own org", adminA, policy.Request{Action: policy.ActionWrite, OrganizationID: ptr(orgA)}, nil},
		{"admin reads other org", adminA, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgB)}, apperr.ErrForbidden},
		{"admin writes unscoped", adminA, policy.Request{Action: policy.ActionWrite}, apperr.ErrForbidden},
		{"admin creates org", adminA, policy.Request{Action: policy.ActionCreateOrg}, apperr.ErrForbidden},
		{"admin manages org", adminA, policy.Request{Action: policy.ActionManageOrg, OrganizationID: ptr(orgA)}, apperr.ErrForbidden},
		{"admin reads own audit", adminA, policy.Request{Action: policy.ActionReadAudit, OrganizationID: ptr(orgA)}, nil},
		{"admin reads other audit", adminA, policy.Request{Action: policy.ActionReadAudit, OrganizationID: ptr(orgB)}, apperr.ErrForbidden},

		{"editor reads own org", editorA, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgA)}, nil},
		{"editor writes own org", editorA, policy.Request{Action: policy.ActionWrite, OrganizationID: ptr(orgA)}, nil},
		{"editor writes other org", editorA, policy.Request{Action: policy.ActionWrite, OrganizationID: ptr(orgB)}, apperr.ErrForbidden},
		{"editor reads audit", editorA, policy.Request{Action: policy.ActionReadAudit, OrganizationID: ptr(orgA)}, apperr.ErrForbidden},
		{"editor creates user", editorA, policy.Request{Action: policy.ActionCreateUser, OrganizationID: ptr(orgA), TargetRole: models.RoleOrgEditor}, apperr.ErrForbidden},

		{"nil actor", nil, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgA)}, apperr.ErrUnauthorized},
		{"unknown role", actor(models.Role("intern"), ptr(orgA)), policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgA)}, apperr.ErrForbidden},
		{"org user without org", actor(models.RoleOrgEditor, nil), policy.Request{Action: policy.ActionRead}, apperr.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(tt.actor, tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAuthorize_CreateUserEscalation(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()
	adminA := actor(models.RoleOrgAdmin, ptr(orgA))
	super := actor(models.RoleSuperAdmin, nil)

	t.Run("org admin may create editors in own org", func(t *testing.T) {
		err := policy.Authorize(adminA, policy.Request{Action: policy.ActionCreateUser, OrganizationID: ptr(orgA), TargetRole: models.RoleOrgEditor})
		assert.NoError(t, err)
	})

	t.Run("org admin cannot create org admins", func(t *testing.T) {
		err := policy.Authorize(adminA, policy.Request{Action: policy.ActionCreateUser, OrganizationID: ptr(orgA), TargetRole: models.RoleOrgAdmin})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("org admin cannot create super admins", func(t *testing.T) {
		err := policy.Authorize(adminA, policy.Request{Action: policy.ActionCreateUser, OrganizationID: ptr(orgA), TargetRole: models.RoleSuperAdmin})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("org admin cannot create users in another org", func(t *testing.T) {
		err := policy.Authorize(adminA, policy.Request{Action: policy.ActionCreateUser, OrganizationID: ptr(orgB), TargetRole: models.RoleOrgEditor})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("super admin may grant any role", func(t *testing.T) {
		for _, role := range models.Roles {
			err := policy.Authorize(super, policy.Request{Action: policy.ActionCreateUser, OrganizationID: ptr(orgB), TargetRole: role})
			assert.NoError(t, err, role)
		}
	})

	t.Run("unknown target role is invalid", func(t *testing.T) {
		err := policy.Authorize(super, policy.Request{Action: policy.ActionCreateUser, TargetRole: "root"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}

func TestActor_ActorType(t *testing.T) {
	var nilActor *policy.Actor
	assert.Equal(t, models.ActorSystem, nilActor.ActorType())
	assert.Equal(t, models.ActorSuperAdmin, actor(models.RoleSuperAdmin, nil).ActorType())
	assert.Equal(t, models.ActorUser, actor(models.RoleOrgEditor, ptr(uuid.New())).ActorType())
}

func TestEnforcer_LogsDenials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	enforcer := policy.NewEnforcer(logger)

	orgA := uuid.New()
	editor := actor(models.RoleOrgEditor, ptr(orgA))

	require.NoError(t, enforcer.Authorize(context.Background(), editor, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(orgA)}))
	assert.Empty(t, buf.String())

	err := enforcer.Authorize(context.Background(), editor, policy.Request{Action: policy.ActionCreateOrg})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "authorization denied")
}

func TestEnforcer_AuthorizeVisibleHidesOtherOrgs(t *testing.T) {
	enforcer := policy.NewEnforcer(testutil.TestLogger())
	admin := actor(models.RoleOrgAdmin, ptr(uuid.New()))

	err := enforcer.AuthorizeVisible(context.Background(), admin, policy.Request{Action: policy.ActionRead, OrganizationID: ptr(uuid.New())})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotErrorIs(t, err, apperr.ErrForbidden)
}

func TestCaseFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	orgA := testutil.CreateTestOrg(t, db)
	orgB := testutil.CreateTestOrg(t, db)
	testutil.CreateTestCase(t, db, &orgA.ID, "A1")
	testutil.CreateTestCase(t, db, &orgA.ID, "A2")
	testutil.CreateTestCase(t, db, &orgB.ID, "B1")
	testutil.CreateTestCase(t, db, nil, "legacy")

	count := func(a *policy.Actor) int64 {
		var n int64
		require.NoError(t, db.Model(&models.Case{}).Scopes(policy.CaseFilter(a)).Count(&n).Error)
		return n
	}

	assert.Equal(t, int64(4), count(actor(models.RoleSuperAdmin, nil)))
	assert.Equal(t, int64(2), count(actor(models.RoleOrgAdmin, &orgA.ID)))
	assert.Equal(t, int64(1), count(actor(models.RoleOrgEditor, &orgB.ID)))
	assert.Equal(t, int64(0), count(actor(models.RoleOrgEditor, nil)))
	assert.Equal(t, int64(0), count(nil))
}
