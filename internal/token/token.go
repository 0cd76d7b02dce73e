// Package token issues and verifies the bearer tokens handed to clients
// after register and login.
//
// A token is an HS256-signed JWT. The subject is the user ID; the token ID
// (jti) is a ULID so revocation entries sort by issue time. Tokens are
// opaque to clients: they never introspect expiry, they only present the
// token and learn from the server whether it still holds.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/atinyakov/issuetracker/internal/models"
)

// DefaultTTL is the lifetime of a token when none is configured.
const DefaultTTL = 24 * time.Hour

// Errors returned by Parse.
var (
	ErrMalformed = errors.New("token: malformed")
	ErrExpired   = errors.New("token: expired")
	ErrSignature = errors.New("token: invalid signature")
)

// Claims is the payload of an issued token.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the user the token was issued to.
func (c *Claims) UserID() string { return c.Subject }

// ExpiresAtTime returns the expiry, or the zero time if none is set.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Manager mints and parses tokens with one shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for deterministic expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// NewManager creates a Manager. A ttl <= 0 selects DefaultTTL.
func NewManager(secret []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("token: secret must be at least 16 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{secret: secret, ttl: ttl, issuer: "issuetracker", now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// RandomSecret returns a fresh 32-byte secret. Tokens signed with it do not
// survive a restart.
func RandomSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("token: generating secret: %w", err)
	}
	return secret, nil
}

// TTL returns the lifetime of minted tokens.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue mints a token for user.
func (m *Manager) Issue(user models.User) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("token: signing: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (m *Manager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", ErrMalformed)
	}
	return claims, nil
}
