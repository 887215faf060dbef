package models

import "github.com/google/uuid"

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one turn of a case's chat history. Messages are append-only.
type Message struct {
	Base
	CaseID  uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	Sender  Sender    `gorm:"type:varchar(8);not null" json:"sender"`
	Content string    `gorm:"type:text;not null" json:"content"`
}

func (Message) TableName() string {
	return "messages"
}
