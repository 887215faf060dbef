// Package cases manages legal matters and the documents filed under them.
package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"gorm.io/gorm"
)

// Retriever returns the plaintext behind a vault handle.
type Retriever interface {
	Retrieve(ctx context.Context, handle string) ([]byte, error)
}

type Service struct {
	db       *gorm.DB
	enforcer *policy.Enforcer
	audit    *audit.Recorder
	vault    Retriever
	logger   *slog.Logger
}

func NewService(db *gorm.DB, enforcer *policy.Enforcer, recorder *audit.Recorder, vault Retriever, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		enforcer: enforcer,
		audit:    recorder,
		vault:    vault,
		logger:   logger,
	}
}

type CreateInput struct {
	Title       string
	Description string
	// OrganizationID is required from SuperAdmins and ignored for everyone
	// else, who file cases under their own organization.
	OrganizationID *uuid.UUID
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (s *Service) Create(ctx context.Context, actor *policy.Actor, in CreateInput) (*models.Case, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}

	orgID := in.OrganizationID
	if !actor.IsSuperAdmin() && actor != nil {
		orgID = actor.OrganizationID
	}
	if err := s.enforcer.Authorize(ctx, actor, policy.Request{Action: policy.ActionWrite, OrganizationID: orgID}); err != nil {
		return nil, err
	}
	if orgID == nil {
		return nil, fmt.Errorf("%w: organization is required", apperr.ErrInvalidInput)
	}

	c := &models.Case{
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		CreatedByID:    &actor.UserID,
		OrganizationID: orgID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("creating case: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          actor,
			Action:         models.AuditCreate,
			Detail:         fmt.Sprintf("Created case %s: %s", c.ID, c.Title),
			Metadata:       map[string]any{"case_id": c.ID},
			OrganizationID: orgID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("case created", "case_id", c.ID, "user_id", actor.UserID)
	return c, nil
}

// List returns the cases visible to actor, newest first.
func (s *Service) List(ctx context.Context, actor *policy.Actor, page Page) ([]models.Case, int64, error) {
	if actor == nil {
		return nil, 0, apperr.ErrUnauthorized
	}
	page = page.normalize()

	query := s.db.WithContext(ctx).Model(&models.Case{}).Scopes(policy.CaseFilter(actor))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting cases: %w", err)
	}

	var cases []models.Case
	if err := query.Order("created_at DESC").Offset(page.Offset).Limit(page.Limit).Find(&cases).Error; err != nil {
		return nil, 0, fmt.Errorf("listing cases: %w", err)
	}

	if _, err := s.audit.Record(ctx, audit.Entry{
		Actor:  actor,
		Action: models.AuditConsult,
		Detail: "Viewed case list",
	}); err != nil {
		return nil, 0, err
	}

	return cases, total, nil
}

// Get returns a case the actor may read.
func (s *Service) Get(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*models.Case, error) {
	return s.Resolve(ctx, actor, id, policy.ActionRead)
}

// Resolve loads a case and authorizes action on it. Cases outside the
// actor's scope are reported as not found.
func (s *Service) Resolve(ctx context.Context, actor *policy.Actor, id uuid.UUID, action policy.Action) (*models.Case, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}

	var c models.Case
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("loading case: %w", err)
	}

	if err := s.enforcer.AuthorizeVisible(ctx, actor, policy.Request{Action: action, OrganizationID: c.OrganizationID}); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete soft-deletes a case together with its documents and messages.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	c, err := s.Resolve(ctx, actor, id, policy.ActionWrite)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", c.ID).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("deleting messages: %w", err)
		}
		if err := tx.Where("case_id = ?", c.ID).Delete(&models.Document{}).Error; err != nil {
			return fmt.Errorf("deleting documents: %w", err)
		}
		if err := tx.Delete(c).Error; err != nil {
			return fmt.Errorf("deleting case: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          actor,
			Action:         models.AuditDelete,
			Detail:         fmt.Sprintf("Deleted case %s", c.ID),
			Metadata:       map[string]any{"case_id": c.ID},
			OrganizationID: c.OrganizationID,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("case deleted", "case_id", c.ID, "user_id", actor.UserID)
	return nil
}
