package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/cases"
)

type CaseHandler struct {
	cases  *cases.Service
	logger *slog.Logger
}

func NewCaseHandler(caseService *cases.Service, logger *slog.Logger) *CaseHandler {
	return &CaseHandler{cases: caseService, logger: logger}
}

// List handles GET /api/v1/cases
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	p := pagination(r)

	list, total, err := h.cases.List(r.Context(), middleware.GetActor(r.Context()), cases.Page{
		Limit:  p.PerPage,
		Offset: p.Offset(),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]dto.CaseDTO, len(list))
	for i := range list {
		response[i] = dto.CaseFromModel(&list[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPage(response, total, p))
}

// Create handles POST /api/v1/cases
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if validationFailed(w, req.Validate()) {
		return
	}

	orgID, _ := validation.ParseOptionalUUID(req.OrganizationID)
	c, err := h.cases.Create(r.Context(), middleware.GetActor(r.Context()), cases.CreateInput{
		Title:          validation.SanitizeString(req.Title),
		Description:    validation.SanitizeString(req.Description),
		OrganizationID: orgID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CaseFromModel(c))
}

// Get handles GET /api/v1/cases/{id}
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.cases.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CaseFromModel(c))
}

// Delete handles DELETE /api/v1/cases/{id}
func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.cases.Delete(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
