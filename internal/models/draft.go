package models

import (
	"strings"

	"github.com/atinyakov/issuetracker/internal/apperr"
)

// IssueDraft carries the user-editable fields of an issue. Nil fields were
// not supplied: on create they take their defaults, on update they leave
// the stored value untouched.
type IssueDraft struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// IsEmpty reports whether the draft supplies no field at all.
func (d IssueDraft) IsEmpty() bool {
	return d.Title == nil && d.Description == nil && d.Status == nil && d.Priority == nil
}

// Validate checks every supplied field.
func (d IssueDraft) Validate() error {
	if d.Title != nil && strings.TrimSpace(*d.Title) == "" {
		return apperr.Validation("title must not be empty")
	}
	if d.Status != nil && !d.Status.Valid() {
		return apperr.Validation("unknown status %q", *d.Status)
	}
	if d.Priority != nil && !d.Priority.Valid() {
		return apperr.Validation("unknown priority %q", *d.Priority)
	}
	return nil
}

// ValidateForCreate is Validate plus the requirement that a title is
// supplied.
func (d IssueDraft) ValidateForCreate() error {
	if d.Title == nil {
		return apperr.Validation("title is required")
	}
	return d.Validate()
}

// NewIssue builds an issue from the draft with defaults applied: status
// Open and priority Medium. ID and timestamps are left for the store.
func (d IssueDraft) NewIssue() Issue {
	issue := Issue{Status: StatusOpen, Priority: PriorityMedium}
	d.Apply(&issue)
	return issue
}

// Apply merges the supplied fields over issue.
func (d IssueDraft) Apply(issue *Issue) {
	if d.Title != nil {
		issue.Title = strings.TrimSpace(*d.Title)
	}
	if d.Description != nil {
		issue.Description = *d.Description
	}
	if d.Status != nil {
		issue.Status = *d.Status
	}
	if d.Priority != nil {
		issue.Priority = *d.Priority
	}
}

// StatusDraft returns a draft that only changes the status.
func StatusDraft(s Status) IssueDraft {
	return IssueDraft{Status: &s}
}
