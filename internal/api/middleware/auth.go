package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/auth"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
)

type contextKey string

const (
	ActorKey contextKey = "actor"
)

// ActorResolver loads the current identity behind a token subject.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (*policy.Actor, error)
}

// Auth validates the bearer token and attaches the resolved actor to the
// request context. The actor is re-read on every request so deactivated
// users and organizations lose access before their token expires.
func Auth(tokens auth.TokenService, actors ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			// 1. Check Authorization header
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			// 2. Check X-Auth-Token header (desktop client fallback)
			if token == "" {
				token = r.Header.Get("X-Auth-Token")
			}

			if token == "" {
				handleUnauthorized(w)
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				handleUnauthorized(w)
				return
			}

			actor, err := actors.ResolveActor(r.Context(), claims.UserID)
			if err != nil {
				handleUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func handleUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "Authentication required"})
}

// GetActor returns the authenticated actor, or nil.
func GetActor(ctx context.Context) *policy.Actor {
	if actor, ok := ctx.Value(ActorKey).(*policy.Actor); ok {
		return actor
	}
	return nil
}

// WithActor is used by tests and internal callers to inject an actor.
func WithActor(ctx context.Context, actor *policy.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

func GetUserID(ctx context.Context) uuid.UUID {
	if actor := GetActor(ctx); actor != nil {
		return actor.UserID
	}
	return uuid.Nil
}

// RequireRole middleware ensures user has specific role
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActor(r.Context())
			if actor == nil {
				handleUnauthorized(w)
				return
			}

			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "Access denied"})
		})
	}
}
