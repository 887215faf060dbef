package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Login(t *testing.T) {
	env := setupRouter(t)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid credentials", map[string]string{"email": env.User.Email, "password": testutil.TestPassword}, http.StatusOK},
		{"email is case-insensitive", map[string]string{"email": "  " + strings.ToUpper(env.User.Email), "password": testutil.TestPassword}, http.StatusOK},
		{"wrong password", map[string]string{"email": env.User.Email, "password": "wrong"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "nobody@example.com", "password": "whatever"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", tt.body))
			testutil.AssertStatus(t, rr, tt.wantStatus)

			if tt.wantStatus == http.StatusOK {
				var resp dto.AuthResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, env.User.ID.String(), resp.User.ID)
				assert.Equal(t, string(models.RoleOrgAdmin), resp.User.Role)
				assert.Equal(t, env.Org.Name, resp.User.OrgName)
			}
		})
	}

	assert.Equal(t, int64(2), testutil.CountAudit(t, env.DB, models.AuditLogin))
	assert.Equal(t, int64(2), testutil.CountAudit(t, env.DB, models.AuditLoginFailed))
}

func TestAuthHandler_Login_InactiveOrganization(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.DB.Model(env.Org).Update("is_active", false).Error)

	rr := env.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    env.User.Email,
		"password": testutil.TestPassword,
	}))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	env := setupRouter(t)

	rr := env.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestAuthHandler_Me(t *testing.T) {
	env := setupRouter(t)

	rr := env.do(testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var user dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &user)
	assert.Equal(t, env.User.Email, user.Email)
	assert.Equal(t, env.Org.ID.String(), user.OrganizationID)

	rr = env.do(testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuth_DeactivatedUserLosesAccess(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.DB.Model(env.User).Update("is_active", false).Error)

	rr := env.do(testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/cases", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
