package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimensions is the fixed length of every stored document vector.
const EmbeddingDimensions = 768

type EmbeddingStatus string

const (
	EmbeddingOK     EmbeddingStatus = "ok"
	EmbeddingStub   EmbeddingStatus = "stub"
	EmbeddingFailed EmbeddingStatus = "failed"
)

// Document is an uploaded file. FilePath is a vault handle to the
// ciphertext; plaintext is never stored.
type Document struct {
	Base
	Filename   string     `gorm:"not null" json:"filename"`
	FilePath   string     `gorm:"not null" json:"-"`
	MIMEType   string     `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64      `json:"size_bytes"`
	UploadedAt time.Time  `gorm:"not null;index" json:"uploaded_at"`
	UploadedBy *uuid.UUID `gorm:"type:uuid" json:"uploaded_by,omitempty"`
	CaseID     *uuid.UUID `gorm:"type:uuid;index" json:"case_id,omitempty"`

	ExtractedText   string           `gorm:"type:text;not null;default:''" json:"-"`
	OCRStrategy     string           `gorm:"column:ocr_strategy" json:"ocr_strategy"`
	Embedding       *pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	EmbeddingStatus EmbeddingStatus  `gorm:"type:varchar(16)" json:"embedding_status"`

	ReprocessAttempts int        `gorm:"not null;default:0" json:"reprocess_attempts"`
	ReprocessedAt     *time.Time `json:"reprocessed_at,omitempty"`

	// Relationships
	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

// HasEmbedding reports whether a vector was stored for the document.
func (d *Document) HasEmbedding() bool {
	return d.Embedding != nil && len(d.Embedding.Slice()) > 0
}
