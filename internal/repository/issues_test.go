package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/db"
	"github.com/atinyakov/issuetracker/internal/models"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 123456789, time.UTC)

func setupIssueMock(t *testing.T) (*SQLIssueRepository, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	repo := NewSQLIssueRepository(conn, db.Postgres)
	repo.Now = func() time.Time { return fixedNow }
	return repo, mock
}

var issueRowColumns = []string{"id", "title", "description", "status", "priority", "created_at", "updated_at"}

func TestIssueCreate(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO issues (id, title, description, status, priority, created_at) VALUES ($1, $2, $3, $4, $5, $6)`)).
		WithArgs(sqlmock.AnyArg(), "Login broken", "", "Open", "High", fixedNow.Truncate(time.Microsecond)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	updated := time.Now()
	got, err := repo.Create(context.Background(), models.Issue{
		Title: "Login broken", Status: models.StatusOpen, Priority: models.PriorityHigh, UpdatedAt: &updated,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, fixedNow.Truncate(time.Microsecond), got.CreatedAt)
	assert.Nil(t, got.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueList_NewestFirst(t *testing.T) {
	repo, mock := setupIssueMock(t)

	older := fixedNow.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM issues ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows(issueRowColumns).
			AddRow("b", "New", "", "Open", "Low", fixedNow, nil).
			AddRow("a", "Old", "desc", "Closed", "High", older, fixedNow))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Nil(t, got[0].UpdatedAt)
	assert.Equal(t, models.StatusClosed, got[1].Status)
	require.NotNil(t, got[1].UpdatedAt)
	assert.Equal(t, fixedNow, *got[1].UpdatedAt)
}

func TestIssueList_EmptyIsNotNil(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectQuery("SELECT .* FROM issues").WillReturnRows(sqlmock.NewRows(issueRowColumns))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIssueList_Error(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectQuery("SELECT .* FROM issues").WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background())
	assert.Error(t, err)
}

func TestIssueGet(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM issues WHERE id = $1`)).
		WithArgs("x").
		WillReturnRows(sqlmock.NewRows(issueRowColumns).
			AddRow("x", "T", "D", "In Review", "Medium", fixedNow, nil))

	got, err := repo.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, got.Status)
	assert.Equal(t, "D", got.Description)
}

func TestIssueGet_NotFound(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM issues WHERE id = $1`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

const updateIssueSQL = `UPDATE issues SET title = $1, description = $2, status = $3, priority = $4, updated_at = $5 WHERE id = $6`

func TestIssueUpdate(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectExec(regexp.QuoteMeta(updateIssueSQL)).
		WithArgs("T", "D", "Resolved", "Low", sqlmock.AnyArg(), "x").
		WillReturnResult(sqlmock.NewResult(0, 1))

	created := fixedNow.Add(-time.Hour)
	got, err := repo.Update(context.Background(), models.Issue{
		ID: "x", Title: "T", Description: "D", Status: models.StatusResolved,
		Priority: models.PriorityLow, CreatedAt: created,
	})
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, fixedNow.Truncate(time.Microsecond), *got.UpdatedAt)
	assert.Equal(t, created, got.CreatedAt)
}

func TestIssueUpdate_NotFound(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectExec(regexp.QuoteMeta(updateIssueSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), models.Issue{ID: "gone"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIssueDelete(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM issues WHERE id = $1`)).
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM issues WHERE id = $1`)).
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "x"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "x"), apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueDelete_Error(t *testing.T) {
	repo, mock := setupIssueMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM issues`)).WillReturnError(errors.New("boom"))

	err := repo.Delete(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
}
