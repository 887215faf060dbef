// Package chat keeps the per-case conversation with the legal assistant.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/pkg/metrics"
	"gorm.io/gorm"
)

// FallbackReply is stored as the assistant turn when generation fails.
const FallbackReply = "Sorry, I can't process your request right now."

// MaxMessageChars bounds a single user turn.
const MaxMessageChars = 8000

// Generator produces the assistant's reply to a user turn.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	db        *gorm.DB
	cases     *cases.Service
	generator Generator
	audit     *audit.Recorder
	timeout   time.Duration
	logger    *slog.Logger
}

// DefaultTimeout bounds generation when NewService gets a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// NewService returns a chat service. A nil generator answers every turn
// with FallbackReply.
func NewService(db *gorm.DB, caseService *cases.Service, generator Generator, recorder *audit.Recorder, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		db:        db,
		cases:     caseService,
		generator: generator,
		audit:     recorder,
		timeout:   timeout,
		logger:    logger,
	}
}

// Send stores the user's turn, generates a reply and stores it. The
// assistant message is returned.
func (s *Service) Send(ctx context.Context, actor *policy.Actor, caseID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", apperr.ErrInvalidInput)
	}
	if len([]rune(content)) > MaxMessageChars {
		return nil, fmt.Errorf("%w: message exceeds %d characters", apperr.ErrInvalidInput, MaxMessageChars)
	}

	c, err := s.cases.Resolve(ctx, actor, caseID, policy.ActionWrite)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{CaseID: c.ID, Sender: models.SenderUser, Content: content}
	if err := s.db.WithContext(ctx).Create(userMsg).Error; err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	reply := s.generate(ctx, content)

	aiMsg := &models.Message{CaseID: c.ID, Sender: models.SenderAI, Content: reply}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(aiMsg).Error; err != nil {
			return fmt.Errorf("saving assistant message: %w", err)
		}
		_, err := s.audit.RecordTx(ctx, tx, audit.Entry{
			Actor:          actor,
			Action:         models.AuditConsult,
			Detail:         fmt.Sprintf("Consulted assistant on case %s", c.ID),
			Metadata:       map[string]any{"case_id": c.ID, "message_id": aiMsg.ID},
			OrganizationID: c.OrganizationID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return aiMsg, nil
}

func (s *Service) generate(ctx context.Context, prompt string) string {
	if s.generator == nil {
		return FallbackReply
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.generator.Generate(ctx, prompt)
	metrics.CloudCallDuration.WithLabelValues("chat", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("chat generation failed", "error", err)
		return FallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		return FallbackReply
	}
	return reply
}

// History returns the case's messages in the order they were written.
func (s *Service) History(ctx context.Context, actor *policy.Actor, caseID uuid.UUID) ([]models.Message, error) {
	c, err := s.cases.Resolve(ctx, actor, caseID, policy.ActionRead)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.WithContext(ctx).
		Where("case_id = ?", c.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}

	if _, err := s.audit.Record(ctx, audit.Entry{
		Actor:          actor,
		Action:         models.AuditConsult,
		Detail:         fmt.Sprintf("Viewed chat history for case %s", c.ID),
		Metadata:       map[string]any{"case_id": c.ID},
		OrganizationID: c.OrganizationID,
	}); err != nil {
		return nil, err
	}

	return messages, nil
}
