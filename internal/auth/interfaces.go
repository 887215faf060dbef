package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ResolveActor(ctx context.Context, userID uuid.UUID) (*policy.Actor, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(user *models.User) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
