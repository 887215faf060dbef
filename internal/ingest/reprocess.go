package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/extract"
	"gorm.io/gorm"
)

// Reprocess re-runs extraction and embedding on a stored document and
// updates it in place. It runs as the System actor.
func (s *Service) Reprocess(ctx context.Context, documentID uuid.UUID) (*Result, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).Preload("Case").First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}

	data, err := s.vault.Retrieve(ctx, doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("retrieving document %s: %w", doc.ID, err)
	}

	extracted := s.extractor.Extract(ctx, data, doc.MIMEType)

	// A failed run never replaces text or a vector stored by an earlier one.
	text, strategy := doc.ExtractedText, doc.OCRStrategy
	updates := map[string]any{
		"reprocess_attempts": gorm.Expr("reprocess_attempts + 1"),
		"reprocessed_at":     time.Now().UTC(),
	}
	if extracted.HasText() || doc.ExtractedText == "" {
		text, strategy = extracted.Text, extracted.Strategy
		updates["extracted_text"] = text
		updates["ocr_strategy"] = strategy
	}

	vector, embStatus := s.embed(ctx, text, doc.Filename)
	if embStatus != models.EmbeddingFailed || !doc.HasEmbedding() {
		updates["embedding"] = vector
		updates["embedding_status"] = embStatus
	} else {
		s.logger.WarnContext(ctx, "keeping previous vector after failed re-embedding", "document_id", doc.ID)
	}

	result := &Result{
		DocumentID:      doc.ID,
		Status:          StatusSuccess,
		OCRStatus:       ocrStatus(extract.Result{Text: text}),
		EmbeddingStatus: embStatus,
		Characters:      utf8.RuneCountInString(text),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&doc).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating document: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Action: models.AuditReprocess,
			Detail: fmt.Sprintf("Reprocessed %s. OCR chars: %d. Embedding: %s", doc.Filename, result.Characters, embStatus),
			Metadata: map[string]any{
				"document_id":      doc.ID,
				"ocr_status":       result.OCRStatus,
				"ocr_strategy":     strategy,
				"characters":       result.Characters,
				"embedding_status": embStatus,
			},
			OrganizationID: cases.DocumentOrganization(&doc),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "document reprocessed",
		"document_id", doc.ID,
		"characters", result.Characters,
		"embedding_status", embStatus,
	)
	return result, nil
}

// Reprocess attempt limits for Pending. A document without text gets one
// retry, since most of those are blank scans and every retry pays for cloud
// OCR. A missing vector is retried longer.
const (
	MaxTextRetries      = 1
	MaxEmbeddingRetries = 3
)

// Pending returns up to limit documents that have no extracted text or no
// stored vector and have retries left. Least-attempted documents come first,
// then the oldest.
func (s *Service) Pending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit < 1 {
		limit = 100
	}

	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("(embedding IS NULL AND reprocess_attempts < ?) OR (extracted_text = '' AND reprocess_attempts < ?)",
			MaxEmbeddingRetries, MaxTextRetries).
		Order("reprocess_attempts ASC, uploaded_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing pending documents: %w", err)
	}
	return ids, nil
}
