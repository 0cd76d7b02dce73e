package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
)

type mockIssueRepo struct {
	CreateFunc func(ctx context.Context, issue models.Issue) (models.Issue, error)
	ListFunc   func(ctx context.Context) ([]models.Issue, error)
	GetFunc    func(ctx context.Context, id string) (models.Issue, error)
	UpdateFunc func(ctx context.Context, issue models.Issue) (models.Issue, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *mockIssueRepo) Create(ctx context.Context, issue models.Issue) (models.Issue, error) {
	return m.CreateFunc(ctx, issue)
}
func (m *mockIssueRepo) List(ctx context.Context) ([]models.Issue, error) { return m.ListFunc(ctx) }
func (m *mockIssueRepo) Get(ctx context.Context, id string) (models.Issue, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockIssueRepo) Update(ctx context.Context, issue models.Issue) (models.Issue, error) {
	return m.UpdateFunc(ctx, issue)
}
func (m *mockIssueRepo) Delete(ctx context.Context, id string) error { return m.DeleteFunc(ctx, id) }

func ptr[T any](v T) *T { return &v }

func TestIssueService_CreateAppliesDefaults(t *testing.T) {
	var stored models.Issue
	repo := &mockIssueRepo{
		CreateFunc: func(ctx context.Context, issue models.Issue) (models.Issue, error) {
			stored = issue
			issue.ID = "i-1"
			return issue, nil
		},
	}
	svc := NewIssueService(repo)

	got, err := svc.Create(context.Background(), models.IssueDraft{Title: ptr(" Crash on save ")})
	require.NoError(t, err)
	assert.Equal(t, "i-1", got.ID)
	assert.Equal(t, "Crash on save", stored.Title)
	assert.Equal(t, models.StatusOpen, stored.Status)
	assert.Equal(t, models.PriorityMedium, stored.Priority)
}

func TestIssueService_CreateValidation(t *testing.T) {
	repo := &mockIssueRepo{
		CreateFunc: func(ctx context.Context, issue models.Issue) (models.Issue, error) {
			t.Fatal("Create must not reach the repository")
			return issue, nil
		},
	}
	svc := NewIssueService(repo)

	drafts := []models.IssueDraft{
		{},
		{Title: ptr("   ")},
		{Title: ptr("ok"), Status: ptr(models.Status("Blocked"))},
		{Title: ptr("ok"), Priority: ptr(models.Priority("Urgent"))},
	}
	for _, d := range drafts {
		_, err := svc.Create(context.Background(), d)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestIssueService_UpdateMerges(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := models.Issue{
		ID: "i-1", Title: "Old", Description: "keep me", Status: models.StatusOpen,
		Priority: models.PriorityLow, CreatedAt: created,
	}
	var saved models.Issue
	repo := &mockIssueRepo{
		GetFunc: func(ctx context.Context, id string) (models.Issue, error) {
			assert.Equal(t, "i-1", id)
			return existing, nil
		},
		UpdateFunc: func(ctx context.Context, issue models.Issue) (models.Issue, error) {
			saved = issue
			now := created.Add(time.Hour)
			issue.UpdatedAt = &now
			return issue, nil
		},
	}
	svc := NewIssueService(repo)

	got, err := svc.Update(context.Background(), "i-1", models.StatusDraft(models.StatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, "Old", saved.Title)
	assert.Equal(t, "keep me", saved.Description)
	assert.Equal(t, models.StatusInProgress, saved.Status)
	assert.Equal(t, models.PriorityLow, saved.Priority)
	assert.Equal(t, created, got.CreatedAt)
	assert.NotNil(t, got.UpdatedAt)
}

func TestIssueService_UpdateErrors(t *testing.T) {
	repo := &mockIssueRepo{
		GetFunc: func(ctx context.Context, id string) (models.Issue, error) {
			return models.Issue{}, apperr.NotFound("issue %s", id)
		},
	}
	svc := NewIssueService(repo)

	_, err := svc.Update(context.Background(), "i-1", models.IssueDraft{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Update(context.Background(), "i-1", models.IssueDraft{Title: ptr("")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Update(context.Background(), "missing", models.IssueDraft{Title: ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIssueService_ListGetDelete(t *testing.T) {
	boom := errors.New("boom")
	repo := &mockIssueRepo{
		ListFunc: func(ctx context.Context) ([]models.Issue, error) {
			return []models.Issue{{ID: "b"}, {ID: "a"}}, nil
		},
		GetFunc: func(ctx context.Context, id string) (models.Issue, error) {
			return models.Issue{ID: id}, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error { return boom },
	}
	svc := NewIssueService(repo)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", list[0].ID)

	got, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = svc.Get(context.Background(), " ")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, boom, svc.Delete(context.Background(), "a"))
	assert.ErrorIs(t, svc.Delete(context.Background(), ""), apperr.ErrNotFound)
}
