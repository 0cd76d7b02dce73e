package service

import (
	"context"
	"strings"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
)

// IssueRepository defines the persistence operations needed by the IssueService.
type IssueRepository interface {
	// Create assigns the id and creation time and stores the issue.
	Create(ctx context.Context, issue models.Issue) (models.Issue, error)
	// List returns every issue, newest first.
	List(ctx context.Context) ([]models.Issue, error)
	// Get returns an apperr.ErrNotFound error for unknown ids.
	Get(ctx context.Context, id string) (models.Issue, error)
	// Update overwrites the editable fields and stamps the update time.
	Update(ctx context.Context, issue models.Issue) (models.Issue, error)
	// Delete returns an apperr.ErrNotFound error for unknown ids.
	Delete(ctx context.Context, id string) error
}

// IssueService implements the issue lifecycle.
type IssueService struct {
	// repo is the underlying persistence repository.
	repo IssueRepository
}

// NewIssueService constructs an IssueService with the provided IssueRepository.
func NewIssueService(repo IssueRepository) *IssueService {
	return &IssueService{repo: repo}
}

// List returns all issues, newest first.
func (s *IssueService) List(ctx context.Context) ([]models.Issue, error) {
	return s.repo.List(ctx)
}

// Get returns a single issue.
func (s *IssueService) Get(ctx context.Context, id string) (models.Issue, error) {
	if strings.TrimSpace(id) == "" {
		return models.Issue{}, apperr.NotFound("issue")
	}
	return s.repo.Get(ctx, id)
}

// Create validates draft, applies the defaults (Open, Medium) and stores
// the result.
func (s *IssueService) Create(ctx context.Context, draft models.IssueDraft) (models.Issue, error) {
	if err := draft.ValidateForCreate(); err != nil {
		return models.Issue{}, err
	}
	return s.repo.Create(ctx, draft.NewIssue())
}

// Update merges the supplied fields of draft over the stored issue.
// Fields left nil keep their stored value.
func (s *IssueService) Update(ctx context.Context, id string, draft models.IssueDraft) (models.Issue, error) {
	if draft.IsEmpty() {
		return models.Issue{}, apperr.Validation("no fields to update")
	}
	if err := draft.Validate(); err != nil {
		return models.Issue{}, err
	}

	issue, err := s.Get(ctx, id)
	if err != nil {
		return models.Issue{}, err
	}
	draft.Apply(&issue)
	return s.repo.Update(ctx, issue)
}

// Delete removes an issue. Deleting an unknown id is a not-found error.
func (s *IssueService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.NotFound("issue")
	}
	return s.repo.Delete(ctx, id)
}
