package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/database/models"
)

type AuditHandler struct {
	reader *audit.Reader
	logger *slog.Logger
}

func NewAuditHandler(reader *audit.Reader, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{reader: reader, logger: logger}
}

// List handles GET /api/v1/audit-logs
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	p := pagination(r)
	q := r.URL.Query()

	filter := audit.Filter{
		Action: models.AuditAction(q.Get("action")),
		Limit:  p.PerPage,
		Offset: p.Offset(),
	}

	details := make(map[string]string)
	if id, ok := validation.ParseOptionalUUID(q.Get("organization_id")); ok {
		filter.OrganizationID = id
	} else {
		details["organization_id"] = "Invalid organization ID"
	}
	if id, ok := validation.ParseOptionalUUID(q.Get("actor_id")); ok {
		filter.ActorID = id
	} else {
		details["actor_id"] = "Invalid actor ID"
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			details["since"] = "Must be an RFC 3339 timestamp"
		} else {
			filter.Since = &t
		}
	}
	if validationFailed(w, details) {
		return
	}

	entries, total, err := h.reader.List(r.Context(), middleware.GetActor(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]dto.AuditLogDTO, len(entries))
	for i := range entries {
		response[i] = dto.AuditLogFromModel(&entries[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPage(response, total, p))
}
