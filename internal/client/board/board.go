// Package board caches the fetched issue list and derives the filtered,
// grouped view the client renders.
//
// The cache only ever holds a list the server returned: mutations go to the
// server first and are followed by a full re-fetch. Fetches are numbered,
// and a response older than the last applied one is discarded, so a slow
// fetch can never overwrite a newer list.
package board

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/issuetracker/internal/aggregator"
	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
)

// Gateway is the subset of the API client the board drives.
type Gateway interface {
	ListIssues(ctx context.Context) ([]models.Issue, error)
	CreateIssue(ctx context.Context, draft models.IssueDraft) (models.Issue, error)
	UpdateIssue(ctx context.Context, id string, draft models.IssueDraft) (models.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
}

// Board is the client-side issue cache.
type Board struct {
	gw  Gateway
	now func() time.Time

	mu        sync.Mutex
	nextSeq   uint64
	applied   uint64
	issues    []models.Issue
	fetchedAt time.Time
}

// New returns an empty board backed by gw.
func New(gw Gateway) *Board {
	return &Board{gw: gw, now: time.Now}
}

// Refresh fetches the full list. It reports whether the response was
// applied; false means a newer fetch had already been applied.
func (b *Board) Refresh(ctx context.Context) (bool, error) {
	b.mu.Lock()
	b.nextSeq++
	seq := b.nextSeq
	b.mu.Unlock()

	issues, err := b.gw.ListIssues(ctx)
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq <= b.applied {
		return false, nil
	}
	b.applied = seq
	b.issues = issues
	b.fetchedAt = b.now()
	return true, nil
}

// Issues returns a copy of the cached list, newest first.
func (b *Board) Issues() []models.Issue {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Issue, len(b.issues))
	copy(out, b.issues)
	return out
}

// FetchedAt returns when the cached list was applied, zero if never.
func (b *Board) FetchedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetchedAt
}

// Find returns the cached issue with id.
func (b *Board) Find(id string) (models.Issue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, issue := range b.issues {
		if issue.ID == id {
			return issue, true
		}
	}
	return models.Issue{}, false
}

// Resolve maps ref to a cached issue id. ref is either a full id or a
// prefix matching exactly one cached issue.
func (b *Board) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", apperr.Validation("issue id is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var match string
	for _, issue := range b.issues {
		if issue.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(issue.ID, ref) {
			if match != "" {
				return "", apperr.Validation("issue id %q is ambiguous", ref)
			}
			match = issue.ID
		}
	}
	if match == "" {
		return "", apperr.NotFound("issue %s", ref)
	}
	return match, nil
}

// Create submits a new issue and re-fetches.
func (b *Board) Create(ctx context.Context, draft models.IssueDraft) (models.Issue, error) {
	issue, err := b.gw.CreateIssue(ctx, draft)
	if err != nil {
		return models.Issue{}, err
	}
	_, err = b.Refresh(ctx)
	return issue, err
}

// Update submits a partial update and re-fetches.
func (b *Board) Update(ctx context.Context, id string, draft models.IssueDraft) (models.Issue, error) {
	issue, err := b.gw.UpdateIssue(ctx, id, draft)
	if err != nil {
		return models.Issue{}, err
	}
	_, err = b.Refresh(ctx)
	return issue, err
}

// SetStatus changes only the status of an issue.
func (b *Board) SetStatus(ctx context.Context, id string, status models.Status) (models.Issue, error) {
	return b.Update(ctx, id, models.StatusDraft(status))
}

// Close moves an issue to Closed.
func (b *Board) Close(ctx context.Context, id string) (models.Issue, error) {
	return b.SetStatus(ctx, id, models.StatusClosed)
}

// Delete removes an issue and re-fetches.
func (b *Board) Delete(ctx context.Context, id string) error {
	if err := b.gw.DeleteIssue(ctx, id); err != nil {
		return err
	}
	_, err := b.Refresh(ctx)
	return err
}

// View is one render pass over the cache.
type View struct {
	Issues []models.Issue           `json:"issues" yaml:"issues"`
	Groups []aggregator.StatusGroup `json:"groups" yaml:"groups"`
	Label  string                   `json:"label" yaml:"label"`
	Active []string                 `json:"filters,omitempty" yaml:"filters,omitempty"`
	Empty  string                   `json:"empty,omitempty" yaml:"empty,omitempty"`
}

// Empty-state messages.
const (
	NoIssues        = "No issues yet"
	NoMatchingIssue = "No issues match your filters"
)

// View applies f to the cached list and groups the result by status.
func (b *Board) View(f aggregator.Filter) View {
	return Render(b.Issues(), f)
}

// Render is View over an explicit snapshot.
func Render(issues []models.Issue, f aggregator.Filter) View {
	filtered := aggregator.Apply(issues, f)
	v := View{
		Issues: filtered,
		Groups: aggregator.GroupByStatus(filtered),
		Label:  aggregator.CountLabel(len(filtered)),
		Active: f.Active(),
	}
	switch {
	case len(issues) == 0:
		v.Empty = NoIssues
	case len(filtered) == 0:
		v.Empty = NoMatchingIssue
	}
	return v
}
