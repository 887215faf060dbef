package dto

import (
	"strings"
	"unicode/utf8"

	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/database/models"
)

type CreateCaseRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

func (r CreateCaseRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidName(r.Title, validation.MaxTitleLength) {
		errors["title"] = "Title is required and must be at most 255 characters"
	}
	if _, ok := validation.ParseOptionalUUID(r.OrganizationID); !ok {
		errors["organization_id"] = "Invalid organization ID"
	}

	return errors
}

type CaseDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	OrganizationID string `json:"organization_id,omitempty"`
	CreatedByID    string `json:"created_by_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func CaseFromModel(c *models.Case) CaseDTO {
	out := CaseDTO{
		ID:          c.ID.String(),
		Title:       c.Title,
		Description: c.Description,
		CreatedAt:   formatTime(c.CreatedAt),
	}
	if c.OrganizationID != nil {
		out.OrganizationID = c.OrganizationID.String()
	}
	if c.CreatedByID != nil {
		out.CreatedByID = c.CreatedByID.String()
	}
	return out
}

type DocumentDTO struct {
	ID              string `json:"id"`
	Filename        string `json:"filename"`
	MIMEType        string `json:"mime_type"`
	SizeBytes       int64  `json:"size_bytes"`
	CaseID          string `json:"case_id,omitempty"`
	UploadedBy      string `json:"uploaded_by,omitempty"`
	UploadedAt      string `json:"uploaded_at"`
	OCRStrategy     string `json:"ocr_strategy,omitempty"`
	HasText         bool   `json:"has_text"`
	EmbeddingStatus string `json:"embedding_status"`
}

func DocumentFromModel(d *models.Document) DocumentDTO {
	out := DocumentDTO{
		ID:              d.ID.String(),
		Filename:        d.Filename,
		MIMEType:        d.MIMEType,
		SizeBytes:       d.SizeBytes,
		UploadedAt:      formatTime(d.UploadedAt),
		OCRStrategy:     d.OCRStrategy,
		HasText:         d.ExtractedText != "",
		EmbeddingStatus: string(d.EmbeddingStatus),
	}
	if d.CaseID != nil {
		out.CaseID = d.CaseID.String()
	}
	if d.UploadedBy != nil {
		out.UploadedBy = d.UploadedBy.String()
	}
	return out
}

// ReprocessResponse reports whether a reprocess job was queued. Queued is
// false when one is already pending for the document.
type ReprocessResponse struct {
	DocumentID string `json:"document_id"`
	Queued     bool   `json:"queued"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func (r SendMessageRequest) Validate(maxChars int) map[string]string {
	errors := make(map[string]string)

	content := strings.TrimSpace(validation.SanitizeString(r.Content))
	switch {
	case content == "":
		errors["content"] = "Message content is required"
	case utf8.RuneCountInString(content) > maxChars:
		errors["content"] = "Message is too long"
	}

	return errors
}

type MessageDTO struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func MessageFromModel(m *models.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID.String(),
		CaseID:    m.CaseID.String(),
		Sender:    string(m.Sender),
		Content:   m.Content,
		CreatedAt: formatTime(m.CreatedAt),
	}
}
