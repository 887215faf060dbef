package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/pkg/queue"
)

// Task type names
const (
	TypeDocumentReprocess = "document:reprocess"
	TypeDocumentBackfill  = "document:backfill"
)

const (
	reprocessTimeout = 5 * time.Minute
	reprocessRetries = 3
)

// ReprocessPayload identifies the document to re-extract and re-embed.
type ReprocessPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// NewReprocessTask builds a reprocess task. The task ID is derived from the
// document so a document is queued at most once at a time.
func NewReprocessTask(payload ReprocessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDocumentReprocess, data,
		asynq.TaskID(ReprocessTaskID(payload.DocumentID)),
		asynq.Queue(queue.Reprocess),
		asynq.MaxRetry(reprocessRetries),
		asynq.Timeout(reprocessTimeout),
	), nil
}

func ReprocessTaskID(documentID uuid.UUID) string {
	return "reprocess:" + documentID.String()
}

// BackfillPayload bounds one backfill sweep.
type BackfillPayload struct {
	BatchSize int `json:"batch_size"`
}

func NewBackfillTask(payload BackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDocumentBackfill, data, asynq.Queue(queue.Maintenance)), nil
}
