package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/db"
	"github.com/atinyakov/issuetracker/internal/models"
)

const issueColumns = `id, title, description, status, priority, created_at, updated_at`

// SQLIssueRepository is the issue store.
type SQLIssueRepository struct {
	// DB is the database handle for executing queries.
	DB      *sql.DB
	Dialect db.Dialect
	// Now stamps created_at and updated_at. Timestamps are kept in UTC at
	// microsecond precision, the finest both backends store.
	Now func() time.Time
}

// NewSQLIssueRepository creates a new SQLIssueRepository using the provided *sql.DB.
func NewSQLIssueRepository(conn *sql.DB, dialect db.Dialect) *SQLIssueRepository {
	return &SQLIssueRepository{DB: conn, Dialect: dialect, Now: time.Now}
}

func (r *SQLIssueRepository) now() time.Time {
	return r.Now().UTC().Truncate(time.Microsecond)
}

// Create stores issue under a new id and creation time. UpdatedAt is
// always cleared.
func (r *SQLIssueRepository) Create(ctx context.Context, issue models.Issue) (models.Issue, error) {
	issue.ID = uuid.NewString()
	issue.CreatedAt = r.now()
	issue.UpdatedAt = nil

	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO issues (id, title, description, status, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`), issue.ID, issue.Title, issue.Description, issue.Status, issue.Priority, issue.CreatedAt)
	if err != nil {
		return models.Issue{}, fmt.Errorf("create issue: %w", err)
	}
	return issue, nil
}

// List returns every issue, newest first. The result is never nil.
func (r *SQLIssueRepository) List(ctx context.Context) ([]models.Issue, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+issueColumns+` FROM issues ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := make([]models.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// Get returns the issue with the given id.
func (r *SQLIssueRepository) Get(ctx context.Context, id string) (models.Issue, error) {
	row := r.DB.QueryRowContext(ctx,
		r.Dialect.Rebind(`SELECT `+issueColumns+` FROM issues WHERE id = $1`), id)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Issue{}, apperr.NotFound("issue %s", id)
	}
	if err != nil {
		return models.Issue{}, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// Update overwrites the editable fields of issue and stamps UpdatedAt.
// CreatedAt is never written.
func (r *SQLIssueRepository) Update(ctx context.Context, issue models.Issue) (models.Issue, error) {
	updatedAt := r.now()
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE issues
		   SET title = $1, description = $2, status = $3, priority = $4, updated_at = $5
		 WHERE id = $6
	`), issue.Title, issue.Description, issue.Status, issue.Priority, updatedAt, issue.ID)
	if err != nil {
		return models.Issue{}, fmt.Errorf("update issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Issue{}, fmt.Errorf("update issue: %w", err)
	}
	if n == 0 {
		return models.Issue{}, apperr.NotFound("issue %s", issue.ID)
	}
	issue.UpdatedAt = &updatedAt
	return issue, nil
}

// Delete removes the issue with the given id.
func (r *SQLIssueRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM issues WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("issue %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIssue(s scanner) (models.Issue, error) {
	var (
		issue     models.Issue
		updatedAt sql.NullTime
	)
	err := s.Scan(&issue.ID, &issue.Title, &issue.Description, &issue.Status,
		&issue.Priority, &issue.CreatedAt, &updatedAt)
	if err != nil {
		return models.Issue{}, err
	}
	issue.CreatedAt = issue.CreatedAt.UTC()
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		issue.UpdatedAt = &t
	}
	return issue, nil
}
