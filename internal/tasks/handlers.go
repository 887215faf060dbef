package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/ingest"
)

// Reprocessor is the part of the ingestion service the worker drives.
type Reprocessor interface {
	Reprocess(ctx context.Context, documentID uuid.UUID) (*ingest.Result, error)
	Pending(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Handler struct {
	logger      *slog.Logger
	reprocessor Reprocessor
	enqueuer    Enqueuer
}

func NewHandler(logger *slog.Logger, reprocessor Reprocessor, enqueuer Enqueuer) *Handler {
	return &Handler{
		logger:      logger,
		reprocessor: reprocessor,
		enqueuer:    enqueuer,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDocumentReprocess, h.HandleReprocess)
	mux.HandleFunc(TypeDocumentBackfill, h.HandleBackfill)
}

func (h *Handler) HandleReprocess(ctx context.Context, t *asynq.Task) error {
	var payload ReprocessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("reprocessing document", "document_id", payload.DocumentID)

	result, err := h.reprocessor.Reprocess(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.logger.Warn("document gone before reprocessing", "document_id", payload.DocumentID)
			return fmt.Errorf("document %s: %w", payload.DocumentID, asynq.SkipRetry)
		}
		h.logger.Error("reprocessing failed", "document_id", payload.DocumentID, "error", err)
		return err
	}

	h.logger.Info("completed reprocessing",
		"document_id", payload.DocumentID,
		"ocr_status", result.OCRStatus,
		"embedding_status", result.EmbeddingStatus,
	)
	return nil
}

// HandleBackfill queues reprocessing for documents missing text or a vector.
func (h *Handler) HandleBackfill(ctx context.Context, t *asynq.Task) error {
	var payload BackfillPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	ids, err := h.reprocessor.Pending(ctx, payload.BatchSize)
	if err != nil {
		return err
	}

	queued := 0
	for _, id := range ids {
		ok, err := Enqueue(ctx, h.enqueuer, id)
		if err != nil {
			h.logger.Error("failed to enqueue reprocess", "document_id", id, "error", err)
			continue
		}
		if ok {
			queued++
		}
	}

	h.logger.Info("backfill sweep complete", "pending", len(ids), "queued", queued)
	return nil
}

// Enqueue schedules reprocessing of a document. It reports false when the
// document is already queued.
func Enqueue(ctx context.Context, enqueuer Enqueuer, documentID uuid.UUID) (bool, error) {
	task, err := NewReprocessTask(ReprocessPayload{DocumentID: documentID})
	if err != nil {
		return false, fmt.Errorf("creating reprocess task: %w", err)
	}

	if _, err := enqueuer.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return false, nil
		}
		return false, fmt.Errorf("enqueueing reprocess task: %w", err)
	}
	return true, nil
}
