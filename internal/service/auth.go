// Package service provides the business logic for authentication and
// issues, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
	"github.com/atinyakov/issuetracker/internal/token"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new user and returns it with its id assigned.
	// Duplicate usernames or emails are validation errors.
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	// GetUserByEmail returns an apperr.ErrNotFound error for unknown emails.
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// GetUserByID returns an apperr.ErrNotFound error for unknown ids.
	GetUserByID(ctx context.Context, id string) (models.User, error)
	// RevokeToken marks a token id as revoked until expiresAt.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	// IsTokenRevoked reports whether RevokeToken was called for jti.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenManager issues and parses signed bearer tokens.
type TokenManager interface {
	Issue(user models.User) (string, *token.Claims, error)
	Parse(raw string) (*token.Claims, error)
}

// AuthService implements registration, login, token verification and
// logout.
type AuthService struct {
	repo   AuthRepository
	tokens TokenManager
	log    *zap.Logger
	cost   int
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(log *zap.Logger) AuthOption {
	return func(s *AuthService) { s.log = log }
}

// NewAuthService constructs a new AuthService using the provided repository
// and token manager.
func NewAuthService(repo AuthRepository, tokens TokenManager, opts ...AuthOption) *AuthService {
	s := &AuthService{repo: repo, tokens: tokens, log: zap.NewNop(), cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register validates the input, stores a new user with a hashed password
// and returns it together with a fresh token.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (models.User, string, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if err := validateRegistration(username, email, password); err != nil {
		return models.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, "", err
	}

	user, err := s.repo.CreateUser(ctx, models.User{Username: username, Email: email, PasswordHash: hash})
	if err != nil {
		return models.User{}, "", err
	}

	raw, _, err := s.tokens.Issue(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, raw, nil
}

func validateRegistration(username, email, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return apperr.Validation("username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperr.Validation("email address is invalid")
	}
	if len(password) < minPasswordLen {
		return apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return apperr.Validation("password must be at most %d bytes", maxPasswordLen)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the credentials and returns the user with a fresh token.
// Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, "", apperr.Validation("email and password are required")
	}

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, "", apperr.Auth("invalid email or password")
	}
	if err != nil {
		return models.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return models.User{}, "", apperr.Auth("invalid email or password")
	}

	raw, _, err := s.tokens.Issue(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, raw, nil
}

// Verify resolves a bearer token to its user. The token must carry a valid
// signature, be unexpired and unrevoked, and name an existing user.
func (s *AuthService) Verify(ctx context.Context, raw string) (models.User, *token.Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if errors.Is(err, token.ErrExpired) {
		return models.User{}, nil, apperr.Auth("token expired")
	}
	if err != nil {
		return models.User{}, nil, apperr.Auth("invalid token")
	}

	revoked, err := s.repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return models.User{}, nil, err
	}
	if revoked {
		return models.User{}, nil, apperr.Auth("token revoked")
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID())
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, nil, apperr.Auth("user no longer exists")
	}
	if err != nil {
		return models.User{}, nil, err
	}
	return user, claims, nil
}

// Logout revokes raw until it expires. Tokens that do not parse are
// already unusable and are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		s.log.Debug("logout with unusable token", zap.Error(err))
		return nil
	}
	return s.repo.RevokeToken(ctx, claims.ID, claims.ExpiresAtTime())
}
