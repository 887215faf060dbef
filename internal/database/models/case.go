package models

import "github.com/google/uuid"

// Case groups documents and the chat history of one legal matter.
type Case struct {
	Base
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`
	// OrganizationID is nil only for legacy rows created before tenancy.
	OrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"organization_id,omitempty"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Documents    []Document    `gorm:"foreignKey:CaseID" json:"-"`
	Messages     []Message     `gorm:"foreignKey:CaseID" json:"-"`
}

func (Case) TableName() string {
	return "cases"
}
