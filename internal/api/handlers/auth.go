package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/auth"
)

type AuthHandler struct {
	authService auth.Authenticator
	logger      *slog.Logger
}

func NewAuthHandler(authService auth.Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if validationFailed(w, req.Validate()) {
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			h.logger.ErrorContext(r.Context(), "login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.UserFromModel(resp.User),
	})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserFromModel(user))
}
