package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hugh/lexvault/internal/admin"
	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/database/models"
)

type AdminHandler struct {
	admin  *admin.Service
	logger *slog.Logger
}

func NewAdminHandler(adminService *admin.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: adminService, logger: logger}
}

// ListOrganizations handles GET /api/v1/organizations
func (h *AdminHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.admin.ListOrganizations(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]dto.OrganizationDTO, len(orgs))
	for i := range orgs {
		response[i] = dto.OrganizationFromModel(&orgs[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// CreateOrganization handles POST /api/v1/organizations
func (h *AdminHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if validationFailed(w, req.Validate()) {
		return
	}

	org, err := h.admin.CreateOrganization(r.Context(), middleware.GetActor(r.Context()), validation.SanitizeString(req.Name))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.OrganizationFromModel(org))
}

// DeactivateOrganization handles POST /api/v1/organizations/{id}/deactivate
func (h *AdminHandler) DeactivateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	org, err := h.admin.DeactivateOrganization(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OrganizationFromModel(org))
}

// ListUsers handles GET /api/v1/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]dto.UserDTO, len(users))
	for i := range users {
		response[i] = dto.UserFromModel(&users[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// CreateUser handles POST /api/v1/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if validationFailed(w, req.Validate()) {
		return
	}

	orgID, _ := validation.ParseOptionalUUID(req.OrganizationID)
	user, err := h.admin.CreateUser(r.Context(), middleware.GetActor(r.Context()), admin.CreateUserInput{
		Email:          strings.TrimSpace(req.Email),
		Password:       req.Password,
		Name:           validation.SanitizeString(strings.TrimSpace(req.Name)),
		Role:           models.Role(req.Role),
		OrganizationID: orgID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromModel(user))
}
