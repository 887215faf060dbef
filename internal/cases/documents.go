package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"gorm.io/gorm"
)

// Documents lists the documents filed under a case, newest first.
func (s *Service) Documents(ctx context.Context, actor *policy.Actor, caseID uuid.UUID) ([]models.Document, error) {
	c, err := s.Resolve(ctx, actor, caseID, policy.ActionRead)
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	if err := s.db.WithContext(ctx).
		Where("case_id = ?", c.ID).
		Order("uploaded_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Document returns document metadata the actor may read. A document
// outside any case is visible to SuperAdmins only.
func (s *Service) Document(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*models.Document, error) {
	return s.ResolveDocument(ctx, actor, id, policy.ActionRead)
}

// ResolveDocument loads a document and checks action against the
// organization owning it.
func (s *Service) ResolveDocument(ctx context.Context, actor *policy.Actor, id uuid.UUID, action policy.Action) (*models.Document, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).Preload("Case").First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}

	if err := s.enforcer.AuthorizeVisible(ctx, actor, policy.Request{
		Action:         action,
		OrganizationID: DocumentOrganization(&doc),
	}); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Download decrypts a document for the actor and records the access.
func (s *Service) Download(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*models.Document, []byte, error) {
	doc, err := s.Document(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.vault.Retrieve(ctx, doc.FilePath)
	if err != nil {
		s.logger.Error("document retrieval failed", "document_id", doc.ID, "error", err)
		return nil, nil, fmt.Errorf("retrieving document %s: %w", doc.ID, err)
	}

	if _, err := s.audit.Record(ctx, audit.Entry{
		Actor:          actor,
		Action:         models.AuditDownload,
		Detail:         fmt.Sprintf("Downloaded document %s: %s", doc.ID, doc.Filename),
		Metadata:       map[string]any{"document_id": doc.ID},
		OrganizationID: DocumentOrganization(doc),
	}); err != nil {
		return nil, nil, err
	}

	return doc, data, nil
}

// DocumentOrganization is the organization owning doc, through its case.
// Documents without a live case are unscoped.
func DocumentOrganization(doc *models.Document) *uuid.UUID {
	if doc.Case == nil {
		return nil
	}
	return doc.Case.OrganizationID
}
