// Package ingest runs the upload pipeline: encrypt, extract, embed, persist
// and audit.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/extract"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/pkg/metrics"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const (
	StatusSuccess = "success"

	OCRSuccess = "success"
	OCRNoText  = "no-text/failed"
)

// Vault seals and opens document bytes.
type Vault interface {
	Store(ctx context.Context, raw []byte, originalName string) (string, error)
	Retrieve(ctx context.Context, handle string) ([]byte, error)
	Discard(ctx context.Context, handle string) error
}

type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) extract.Result
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Input(text, fallback string) string
	Stub() bool
}

type Input struct {
	Data     []byte
	Filename string
	MIMEType string
	// CaseID nil files the document in the unscoped bucket, which only
	// SuperAdmins may write to.
	CaseID *uuid.UUID
	Actor  *policy.Actor
}

type Result struct {
	DocumentID      uuid.UUID              `json:"document_id"`
	Status          string                 `json:"status"`
	OCRStatus       string                 `json:"ocr_status"`
	EmbeddingStatus models.EmbeddingStatus `json:"embedding_status"`
	Characters      int                    `json:"characters"`
}

type Service struct {
	db        *gorm.DB
	enforcer  *policy.Enforcer
	cases     *cases.Service
	vault     Vault
	extractor Extractor
	embedder  Embedder
	audit     *audit.Recorder
	logger    *slog.Logger
}

func NewService(
	db *gorm.DB,
	enforcer *policy.Enforcer,
	caseService *cases.Service,
	vault Vault,
	extractor Extractor,
	embedder Embedder,
	recorder *audit.Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:        db,
		enforcer:  enforcer,
		cases:     caseService,
		vault:     vault,
		extractor: extractor,
		embedder:  embedder,
		audit:     recorder,
		logger:    logger,
	}
}

// Ingest stores one uploaded file. Extraction and embedding failures
// degrade the result; encryption, persistence and audit failures abort it.
func (s *Service) Ingest(ctx context.Context, in Input) (*Result, error) {
	filename := cleanFilename(in.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", apperr.ErrInvalidInput)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", apperr.ErrInvalidInput)
	}

	orgID, err := s.authorize(ctx, in.Actor, in.CaseID)
	if err != nil {
		return nil, err
	}

	mimeType := ResolveMIME(filename, in.MIMEType, in.Data)

	handle, err := s.vault.Store(ctx, in.Data, filename)
	if err != nil {
		metrics.IngestionFailuresTotal.WithLabelValues("vault").Inc()
		s.logger.ErrorContext(ctx, "document encryption failed", "filename", filename, "error", err)
		return nil, fmt.Errorf("storing document: %w", err)
	}

	extracted := s.extractor.Extract(ctx, in.Data, mimeType)
	vector, embStatus := s.embed(ctx, extracted.Text, filename)

	doc := &models.Document{
		Filename:        filename,
		FilePath:        handle,
		MIMEType:        mimeType,
		SizeBytes:       int64(len(in.Data)),
		UploadedAt:      time.Now().UTC(),
		UploadedBy:      &in.Actor.UserID,
		CaseID:          in.CaseID,
		ExtractedText:   extracted.Text,
		OCRStrategy:     extracted.Strategy,
		Embedding:       vector,
		EmbeddingStatus: embStatus,
	}
	result := &Result{
		Status:          StatusSuccess,
		OCRStatus:       ocrStatus(extracted),
		EmbeddingStatus: embStatus,
		Characters:      utf8.RuneCountInString(extracted.Text),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          in.Actor,
			Action:         models.AuditUpload,
			Detail:         fmt.Sprintf("Uploaded %s. OCR chars: %d. Embedding: %s", filename, result.Characters, embStatus),
			Metadata:       auditMetadata(doc, result),
			OrganizationID: orgID,
		})
		return err
	})
	if err != nil {
		metrics.IngestionFailuresTotal.WithLabelValues("persist").Inc()
		s.logger.ErrorContext(ctx, "document persistence failed", "filename", filename, "error", err)
		if derr := s.vault.Discard(context.WithoutCancel(ctx), handle); derr != nil {
			s.logger.WarnContext(ctx, "orphaned ciphertext left in storage", "handle", handle, "error", derr)
		}
		return nil, err
	}

	result.DocumentID = doc.ID
	metrics.IngestionsTotal.WithLabelValues(result.OCRStatus, string(embStatus)).Inc()
	s.logger.InfoContext(ctx, "document ingested",
		"document_id", doc.ID,
		"user_id", in.Actor.UserID,
		"mime_type", mimeType,
		"ocr_strategy", extracted.Strategy,
		"characters", result.Characters,
		"embedding_status", embStatus,
	)
	return result, nil
}

// authorize checks write access to the target case and returns the
// organization that will own the document.
func (s *Service) authorize(ctx context.Context, actor *policy.Actor, caseID *uuid.UUID) (*uuid.UUID, error) {
	if caseID == nil {
		if err := s.enforcer.Authorize(ctx, actor, policy.Request{Action: policy.ActionWrite}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	c, err := s.cases.Resolve(ctx, actor, *caseID, policy.ActionWrite)
	if err != nil {
		return nil, err
	}
	return c.OrganizationID, nil
}

func (s *Service) embed(ctx context.Context, text, filename string) (*pgvector.Vector, models.EmbeddingStatus) {
	values, err := s.embedder.Embed(ctx, s.embedder.Input(text, filename))
	if err != nil {
		s.logger.WarnContext(ctx, "embedding failed, storing document without vector", "filename", filename, "error", err)
		return nil, models.EmbeddingFailed
	}

	v := pgvector.NewVector(values)
	if s.embedder.Stub() {
		return &v, models.EmbeddingStub
	}
	return &v, models.EmbeddingOK
}

func ocrStatus(r extract.Result) string {
	if r.HasText() {
		return OCRSuccess
	}
	return OCRNoText
}

func auditMetadata(doc *models.Document, r *Result) map[string]any {
	m := map[string]any{
		"document_id":      doc.ID,
		"filename":         doc.Filename,
		"mime_type":        doc.MIMEType,
		"size_bytes":       doc.SizeBytes,
		"ocr_status":       r.OCRStatus,
		"ocr_strategy":     doc.OCRStrategy,
		"characters":       r.Characters,
		"embedding_status": r.EmbeddingStatus,
	}
	if doc.CaseID != nil {
		m["case_id"] = *doc.CaseID
	}
	return m
}

// ResolveMIME picks the content type used for extraction. A .pdf extension
// always wins; missing or generic declared types are sniffed from data.
func ResolveMIME(filename, declared string, data []byte) string {
	if strings.EqualFold(path.Ext(filename), ".pdf") {
		return "application/pdf"
	}
	mt := extract.NormalizeMIME(declared)
	if mt == "" || mt == "application/octet-stream" {
		mt = extract.NormalizeMIME(mimetype.Detect(data).String())
	}
	return mt
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
