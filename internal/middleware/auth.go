// Package middleware provides HTTP middlewares for authentication, logging
// and CORS.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
	"github.com/atinyakov/issuetracker/internal/token"
)

type ctxKey string

const (
	userKey   ctxKey = "user"
	claimsKey ctxKey = "claims"
)

// Verifier resolves a bearer token to the user it was issued for.
type Verifier interface {
	Verify(ctx context.Context, raw string) (models.User, *token.Claims, error)
}

// BearerAuth is a middleware that requires a valid "Authorization: Bearer"
// token on every request.
//
// On success the verified user and the token claims are stored in the
// request context. A missing, malformed, expired or revoked token is
// answered with 401 and a JSON error body.
func BearerAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			user, claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				if apperr.Kind(err) == apperr.ErrAuth {
					writeError(w, http.StatusUnauthorized, apperr.Detail(err))
					return
				}
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header, or "" when
// the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

// UserFromContext returns the user stored by BearerAuth.
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// ClaimsFromContext returns the token claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(claimsKey).(*token.Claims)
	return c
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
