// Package http provides the HTTP handlers and router of the issue
// tracker API.
package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/middleware"
	"github.com/atinyakov/issuetracker/internal/models"
	"github.com/atinyakov/issuetracker/internal/token"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (models.User, string, error)
	Login(ctx context.Context, email, password string) (models.User, string, error)
	Verify(ctx context.Context, raw string) (models.User, *token.Claims, error)
	Logout(ctx context.Context, raw string) error
}

// AuthHandler handles HTTP requests for registration, login, logout and
// token verification.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and answers 201 with the user and a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}

	user, tok, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.AuthResponse{User: user, Token: tok})
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}

	user, tok, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{User: user, Token: tok})
}

// Logout revokes the presented token if there is one. It always answers
// 200: the client drops its session whatever happens here.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := middleware.BearerToken(r); raw != "" {
		if err := h.AuthService.Logout(r.Context(), raw); err != nil && h.Log != nil {
			h.Log.Warn("token revocation failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// Verify returns the user of the token checked by BearerAuth.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	resp := verifyResponse{User: user}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC()
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyResponse struct {
	User models.User `json:"user"`
	// ExpiresAt tells the client how long the token remains usable.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
