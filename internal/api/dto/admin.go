package dto

import (
	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/database/models"
)

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

func (r CreateOrganizationRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidName(r.Name, validation.MaxNameLength) {
		errors["name"] = "Name is required and must be at most 200 characters"
	}

	return errors
}

type OrganizationDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func OrganizationFromModel(o *models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:        o.ID.String(),
		Name:      o.Name,
		IsActive:  o.IsActive,
		CreatedAt: formatTime(o.CreatedAt),
	}
}

type AuditLogDTO struct {
	ID             string `json:"id"`
	ActorID        string `json:"actor_id,omitempty"`
	ActorType      string `json:"actor_type"`
	Action         string `json:"action"`
	Detail         string `json:"detail"`
	Metadata       any    `json:"metadata,omitempty"`
	IPAddress      string `json:"ip_address,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func AuditLogFromModel(a *models.AuditLog) AuditLogDTO {
	out := AuditLogDTO{
		ID:        a.ID.String(),
		ActorType: string(a.ActorType),
		Action:    string(a.Action),
		Detail:    a.Detail,
		IPAddress: a.IPAddress,
		CreatedAt: formatTime(a.CreatedAt),
	}
	if a.ActorID != nil {
		out.ActorID = a.ActorID.String()
	}
	if a.OrganizationID != nil {
		out.OrganizationID = a.OrganizationID.String()
	}
	if len(a.Metadata) > 0 {
		out.Metadata = a.Metadata
	}
	return out
}
