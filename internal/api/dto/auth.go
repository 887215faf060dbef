package dto

import (
	"strings"

	"github.com/hugh/lexvault/internal/api/validation"
	"github.com/hugh/lexvault/internal/database/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	OrgName        string `json:"org_name,omitempty"`
	IsActive       bool   `json:"is_active"`
	LastLoginAt    string `json:"last_login_at,omitempty"`
}

func UserFromModel(u *models.User) UserDTO {
	out := UserDTO{
		ID:       u.ID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
	if u.OrganizationID != nil {
		out.OrganizationID = u.OrganizationID.String()
	}
	if u.Organization != nil {
		out.OrgName = u.Organization.Name
	}
	if u.LastLoginAt != nil {
		out.LastLoginAt = formatTime(*u.LastLoginAt)
	}
	return out
}

type CreateUserRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
}

func (r CreateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "A valid email is required"
	}
	if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if !validation.IsValidName(r.Name, validation.MaxNameLength) {
		errors["name"] = "Name is required"
	}
	if !models.Role(r.Role).Valid() {
		errors["role"] = "Role must be one of super_admin, org_admin, org_editor"
	}
	if _, ok := validation.ParseOptionalUUID(r.OrganizationID); !ok {
		errors["organization_id"] = "Invalid organization ID"
	}

	return errors
}
