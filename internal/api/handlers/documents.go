package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/ingest"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/internal/tasks"
)

// Ingester runs the upload pipeline.
type Ingester interface {
	Ingest(ctx context.Context, in ingest.Input) (*ingest.Result, error)
}

type DocumentHandler struct {
	cases    *cases.Service
	ingester Ingester
	queue    tasks.Enqueuer
	maxBytes int64
	logger   *slog.Logger
}

// NewDocumentHandler returns the document endpoints. A nil queue disables
// reprocessing.
func NewDocumentHandler(caseService *cases.Service, ingester Ingester, queue tasks.Enqueuer, maxBytes int64, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		cases:    caseService,
		ingester: ingester,
		queue:    queue,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// UploadToCase handles POST /api/v1/cases/{id}/documents
func (h *DocumentHandler) UploadToCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	h.upload(w, r, &caseID)
}

// Upload handles POST /api/v1/documents. The optional case_id form field
// files the document under a case; without it the document is unscoped.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, nil)
}

func (h *DocumentHandler) upload(w http.ResponseWriter, r *http.Request, caseID *uuid.UUID) {
	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File too large"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	if caseID == nil {
		id, ok := validation.ParseOptionalUUID(r.FormValue("case_id"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Details: map[string]string{"case_id": "Invalid case ID"},
			})
			return
		}
		caseID = id
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read upload"})
		return
	}

	result, err := h.ingester.Ingest(r.Context(), ingest.Input{
		Data:     data,
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		CaseID:   caseID,
		Actor:    middleware.GetActor(r.Context()),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListByCase handles GET /api/v1/cases/{id}/documents
func (h *DocumentHandler) ListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	docs, err := h.cases.Documents(r.Context(), middleware.GetActor(r.Context()), caseID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]dto.DocumentDTO, len(docs))
	for i := range docs {
		response[i] = dto.DocumentFromModel(&docs[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.cases.Document(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DocumentFromModel(doc))
}

// Download handles GET /api/v1/documents/{id}/download
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	doc, data, err := h.cases.Download(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	contentType := doc.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Reprocess handles POST /api/v1/documents/{id}/reprocess
func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.cases.ResolveDocument(r.Context(), middleware.GetActor(r.Context()), id, policy.ActionWrite)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Reprocessing is unavailable"})
		return
	}

	queued, err := tasks.Enqueue(r.Context(), h.queue, doc.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.ReprocessResponse{
		DocumentID: doc.ID.String(),
		Queued:     queued,
	})
}
