package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
)

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	audit  *audit.Recorder
	logger *slog.Logger
}

func NewService(db *gorm.DB, jwt *JWTService, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{db: db, jwt: jwt, audit: recorder, logger: logger}
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login verifies credentials and issues a token. Every attempt is audited.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(ctx, nil, email, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		s.recordFailure(ctx, &user, email, "wrong password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive || (user.Organization != nil && !user.Organization.IsActive) {
		s.recordFailure(ctx, &user, email, "inactive account")
		return nil, ErrInactiveUser
	}

	token, err := s.jwt.GenerateToken(&user)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		s.logger.WarnContext(ctx, "failed to update last login", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now

	if _, err := s.audit.Record(ctx, audit.Entry{
		Actor:  policy.ActorFromUser(&user),
		Action: models.AuditLogin,
		Detail: fmt.Sprintf("User %s logged in", user.Email),
	}); err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, user *models.User, email, reason string) {
	entry := audit.Entry{
		Action:   models.AuditLoginFailed,
		Detail:   fmt.Sprintf("Failed login for %s", email),
		Metadata: map[string]any{"reason": reason},
	}
	if user != nil {
		entry.Actor = policy.ActorFromUser(user)
	}
	if _, err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit login failure", "error", err)
	}
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ResolveActor loads the current state of a token's user so that
// deactivation and role changes apply immediately.
func (s *Service) ResolveActor(ctx context.Context, userID uuid.UUID) (*policy.Actor, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive || (user.Organization != nil && !user.Organization.IsActive) {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, ErrInactiveUser)
	}
	if !user.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrUnauthorized, user.Role)
	}
	return policy.ActorFromUser(user), nil
}
