package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles, ordered by privilege.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOrgAdmin   Role = "org_admin"
	RoleOrgEditor  Role = "org_editor"
)

// Roles lists every valid role from most to least privileged.
var Roles = []Role{RoleSuperAdmin, RoleOrgAdmin, RoleOrgEditor}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleOrgAdmin, RoleOrgEditor:
		return true
	}
	return false
}

// Rank orders roles by privilege; higher is more privileged. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleOrgAdmin:
		return 2
	case RoleOrgEditor:
		return 1
	}
	return 0
}

type User struct {
	Base
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string     `gorm:"not null" json:"-"`
	Name           string     `json:"name"`
	Role           Role       `gorm:"type:varchar(32);not null;default:'org_editor'" json:"role"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (User) TableName() string {
	return "users"
}
