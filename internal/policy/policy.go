// Package policy decides who may do what to which organization's data.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/pkg/metrics"
	"gorm.io/gorm"
)

// Actor is the resolved identity behind a request.
type Actor struct {
	UserID         uuid.UUID
	Email          string
	Role           models.Role
	OrganizationID *uuid.UUID
}

func ActorFromUser(u *models.User) *Actor {
	return &Actor{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Role == models.RoleSuperAdmin
}

// ActorType is how the actor is recorded in the audit trail.
func (a *Actor) ActorType() models.ActorType {
	switch {
	case a == nil:
		return models.ActorSystem
	case a.IsSuperAdmin():
		return models.ActorSuperAdmin
	default:
		return models.ActorUser
	}
}

type Action string

const (
	ActionRead       Action = "read"
	ActionWrite      Action = "write"
	ActionCreateOrg  Action = "create_org"
	ActionManageOrg  Action = "manage_org"
	ActionCreateUser Action = "create_user"
	ActionReadAudit  Action = "read_audit"
)

// Request describes an attempted action on a resource.
type Request struct {
	Action Action
	// OrganizationID owns the target resource; nil means unscoped.
	OrganizationID *uuid.UUID
	// TargetRole is the role being granted, for ActionCreateUser.
	TargetRole models.Role
}

type scope int

const (
	scopeNone scope = iota
	scopeOwnOrg
	scopeAny
)

var rules = map[models.Role]map[Action]scope{
	models.RoleSuperAdmin: {
		ActionRead:       scopeAny,
		ActionWrite:      scopeAny,
		ActionCreateOrg:  scopeAny,
		ActionManageOrg:  scopeAny,
		ActionCreateUser: scopeAny,
		ActionReadAudit:  scopeAny,
	},
	models.RoleOrgAdmin: {
		ActionRead:       scopeOwnOrg,
		ActionWrite:      scopeOwnOrg,
		ActionCreateUser: scopeOwnOrg,
		ActionReadAudit:  scopeOwnOrg,
	},
	models.RoleOrgEditor: {
		ActionRead:  scopeOwnOrg,
		ActionWrite: scopeOwnOrg,
	},
}

// Authorize returns nil when actor may perform req, apperr.ErrUnauthorized
// for a missing actor and apperr.ErrForbidden otherwise.
func Authorize(actor *Actor, req Request) error {
	if actor == nil || actor.UserID == uuid.Nil {
		return apperr.ErrUnauthorized
	}

	switch rules[actor.Role][req.Action] {
	case scopeAny:
	case scopeOwnOrg:
		// Unscoped resources only match scopeAny.
		if req.OrganizationID == nil || actor.OrganizationID == nil || *req.OrganizationID != *actor.OrganizationID {
			return fmt.Errorf("%w: %s outside own organization", apperr.ErrForbidden, req.Action)
		}
	default:
		return fmt.Errorf("%w: role %q cannot %s", apperr.ErrForbidden, actor.Role, req.Action)
	}

	if req.Action == ActionCreateUser {
		if !req.TargetRole.Valid() {
			return fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, req.TargetRole)
		}
		if !actor.IsSuperAdmin() && req.TargetRole.Rank() >= actor.Role.Rank() {
			return fmt.Errorf("%w: cannot grant role %q", apperr.ErrForbidden, req.TargetRole)
		}
	}

	return nil
}

// Enforcer wraps Authorize with denial logging.
type Enforcer struct {
	logger *slog.Logger
}

func NewEnforcer(logger *slog.Logger) *Enforcer {
	return &Enforcer{logger: logger}
}

func (e *Enforcer) Authorize(ctx context.Context, actor *Actor, req Request) error {
	err := Authorize(actor, req)
	if err != nil {
		attrs := []any{"action", req.Action, "reason", err.Error()}
		if actor != nil {
			attrs = append(attrs, "user_id", actor.UserID, "role", actor.Role)
		}
		if req.OrganizationID != nil {
			attrs = append(attrs, "resource_org", *req.OrganizationID)
		}
		e.logger.WarnContext(ctx, "authorization denied", attrs...)
		metrics.AuthorizationDenialsTotal.WithLabelValues(string(req.Action)).Inc()
	}
	return err
}

// AuthorizeVisible is Authorize for reads of an existing resource: a
// resource outside the actor's scope is reported as not found.
func (e *Enforcer) AuthorizeVisible(ctx context.Context, actor *Actor, req Request) error {
	err := e.Authorize(ctx, actor, req)
	if errors.Is(err, apperr.ErrForbidden) {
		return apperr.ErrNotFound
	}
	return err
}

// CaseFilter restricts a case query to the organizations the actor can see.
func CaseFilter(actor *Actor) func(*gorm.DB) *gorm.DB {
	return OrgFilter("cases.organization_id", actor)
}

// OrgFilter restricts a query on column to the actor's organization. A
// SuperAdmin sees everything; an actor without an organization sees nothing.
func OrgFilter(column string, actor *Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case actor.IsSuperAdmin():
			return db
		case actor == nil || actor.OrganizationID == nil:
			return db.Where("1 = 0")
		default:
			return db.Where(column+" = ?", *actor.OrganizationID)
		}
	}
}
