// Package admin manages tenants and their user accounts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/auth"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	enforcer *policy.Enforcer
	audit    *audit.Recorder
	logger   *slog.Logger
}

func NewService(db *gorm.DB, enforcer *policy.Enforcer, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{db: db, enforcer: enforcer, audit: recorder, logger: logger}
}

func (s *Service) CreateOrganization(ctx context.Context, actor *policy.Actor, name string) (*models.Organization, error) {
	if err := s.enforcer.Authorize(ctx, actor, policy.Request{Action: policy.ActionCreateOrg}); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", apperr.ErrInvalidInput)
	}

	org := &models.Organization{Name: name, IsActive: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Organization{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return fmt.Errorf("checking organization name: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: organization %q already exists", apperr.ErrConflict, name)
		}
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("creating organization: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          actor,
			Action:         models.AuditCreateOrg,
			Detail:         fmt.Sprintf("Created organization %s: %s", org.ID, org.Name),
			OrganizationID: &org.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "organization created", "organization_id", org.ID, "user_id", actor.UserID)
	return org, nil
}

// DeactivateOrganization disables a tenant. Its users can no longer log in.
func (s *Service) DeactivateOrganization(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*models.Organization, error) {
	if err := s.enforcer.Authorize(ctx, actor, policy.Request{Action: policy.ActionManageOrg, OrganizationID: &id}); err != nil {
		return nil, err
	}

	var org models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&org, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return fmt.Errorf("loading organization: %w", err)
		}
		if !org.IsActive {
			return nil
		}
		if err := tx.Model(&org).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivating organization: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          actor,
			Action:         models.AuditDeactivateOrg,
			Detail:         fmt.Sprintf("Deactivated organization %s: %s", org.ID, org.Name),
			OrganizationID: &org.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &org, nil
}

// ListOrganizations returns every organization to a SuperAdmin and the
// actor's own organization to anyone else.
func (s *Service) ListOrganizations(ctx context.Context, actor *policy.Actor) ([]models.Organization, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}

	var orgs []models.Organization
	if err := s.db.WithContext(ctx).
		Scopes(policy.OrgFilter("id", actor)).
		Order("name ASC").
		Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
	// OrganizationID defaults to the actor's organization.
	OrganizationID *uuid.UUID
}

// CreateUser adds an account. Non-SuperAdmins may only create users in
// their own organization with a role below their own.
func (s *Service) CreateUser(ctx context.Context, actor *policy.Actor, in CreateUserInput) (*models.User, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}

	orgID := in.OrganizationID
	if orgID == nil && !actor.IsSuperAdmin() {
		orgID = actor.OrganizationID
	}

	if err := s.enforcer.Authorize(ctx, actor, policy.Request{
		Action:         policy.ActionCreateUser,
		OrganizationID: orgID,
		TargetRole:     in.Role,
	}); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperr.ErrInvalidInput)
	}
	if in.Role != models.RoleSuperAdmin && orgID == nil {
		return nil, fmt.Errorf("%w: organization is required for role %s", apperr.ErrInvalidInput, in.Role)
	}
	if in.Role == models.RoleSuperAdmin {
		orgID = nil
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	user := &models.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           strings.TrimSpace(in.Name),
		Role:           in.Role,
		OrganizationID: orgID,
		IsActive:       true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if orgID != nil {
			var org models.Organization
			if err := tx.First(&org, "id = ?", *orgID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: organization does not exist", apperr.ErrInvalidInput)
				}
				return fmt.Errorf("loading organization: %w", err)
			}
			if !org.IsActive {
				return fmt.Errorf("%w: organization is inactive", apperr.ErrInvalidInput)
			}
		}

		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: user already exists", apperr.ErrConflict)
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          actor,
			Action:         models.AuditCreateUser,
			Detail:         fmt.Sprintf("Created user %s (%s) with role %s", user.ID, user.Email, user.Role),
			Metadata:       map[string]any{"user_id": user.ID, "role": user.Role},
			OrganizationID: orgID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role, "created_by", actor.UserID)
	return user, nil
}

// ListUsers returns the accounts visible to actor.
func (s *Service) ListUsers(ctx context.Context, actor *policy.Actor) ([]models.User, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Scopes(policy.OrgFilter("organization_id", actor)).
		Order("email ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Bootstrap creates the first SuperAdmin. It is a no-op, returning false,
// once any SuperAdmin exists. The entry is audited as a System action.
func (s *Service) Bootstrap(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, fmt.Errorf("%w: email is required", apperr.ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&n).Error; err != nil {
			return fmt.Errorf("checking for super admin: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: user already exists", apperr.ErrConflict)
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("creating super admin: %w", err)
		}
		created = true
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Action:   models.AuditCreateUser,
			Detail:   fmt.Sprintf("Bootstrapped super admin %s (%s)", user.ID, user.Email),
			Metadata: map[string]any{"user_id": user.ID, "role": user.Role},
		})
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return nil, false, nil
	}

	s.logger.InfoContext(ctx, "super admin bootstrapped", "user_id", user.ID)
	return user, true, nil
}
