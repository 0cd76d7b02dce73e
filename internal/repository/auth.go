// Package repository provides SQL persistence for users, revoked tokens
// and issues. Queries are written for PostgreSQL and rebound for SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/db"
	"github.com/atinyakov/issuetracker/internal/models"
)

// SQLAuthRepository stores user accounts and revoked token ids.
type SQLAuthRepository struct {
	// DB is the database handle for executing queries.
	DB      *sql.DB
	Dialect db.Dialect
	Now     func() time.Time
}

// NewSQLAuthRepository creates a new SQLAuthRepository with the given
// database connection.
func NewSQLAuthRepository(conn *sql.DB, dialect db.Dialect) *SQLAuthRepository {
	return &SQLAuthRepository{DB: conn, Dialect: dialect, Now: time.Now}
}

// CreateUser inserts u with a freshly assigned id. A duplicate username or
// email is reported as a validation error.
func (r *SQLAuthRepository) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`), u.ID, u.Username, u.Email, u.PasswordHash, r.Now().UTC())
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch {
			case strings.Contains(constraint, "email"):
				return models.User{}, apperr.Validation("email is already registered")
			case strings.Contains(constraint, "username"):
				return models.User{}, apperr.Validation("username is already taken")
			default:
				return models.User{}, apperr.Validation("user already exists")
			}
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the user registered with email.
func (r *SQLAuthRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getUser(ctx, `SELECT id, username, email, password_hash FROM users WHERE email = $1`, email)
}

// GetUserByID returns the user with the given id.
func (r *SQLAuthRepository) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return r.getUser(ctx, `SELECT id, username, email, password_hash FROM users WHERE id = $1`, id)
}

func (r *SQLAuthRepository) getUser(ctx context.Context, query, arg string) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(query), arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// RevokeToken records jti as revoked until expiresAt. Revoking the same
// id twice is not an error.
func (r *SQLAuthRepository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`), jti, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether jti has been revoked.
func (r *SQLAuthRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.DB.QueryRowContext(
		ctx,
		r.Dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`),
		jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
