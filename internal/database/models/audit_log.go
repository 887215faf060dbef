package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorSystem     ActorType = "System"
	ActorUser       ActorType = "User"
	ActorSuperAdmin ActorType = "SuperAdmin"
)

type AuditAction string

const (
	AuditUpload        AuditAction = "UPLOAD"
	AuditCreate        AuditAction = "CREATE"
	AuditDelete        AuditAction = "DELETE"
	AuditCreateOrg     AuditAction = "CREATE_ORG"
	AuditDeactivateOrg AuditAction = "DEACTIVATE_ORG"
	AuditCreateUser    AuditAction = "CREATE_USER"
	AuditLogin         AuditAction = "LOGIN"
	AuditLoginFailed   AuditAction = "LOGIN_FAILED"
	AuditDownload      AuditAction = "DOWNLOAD"
	AuditConsult       AuditAction = "CONSULT"
	AuditReprocess     AuditAction = "REPROCESS"
)

// AuditLog is an append-only record of a sensitive action. It has no
// soft-delete column and is never updated.
type AuditLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID        *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	ActorType      ActorType      `gorm:"type:varchar(16);not null" json:"actor_type"`
	Action         AuditAction    `gorm:"type:varchar(32);not null;index" json:"action"`
	Detail         string         `gorm:"type:text" json:"detail"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	IPAddress      string         `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	OrganizationID *uuid.UUID     `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
