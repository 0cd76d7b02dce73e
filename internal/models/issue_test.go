package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/issuetracker/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"open", StatusOpen, true},
		{"In Progress", StatusInProgress, true},
		{"in-progress", StatusInProgress, true},
		{"IN_REVIEW", StatusInReview, true},
		{" resolved ", StatusResolved, true},
		{"Closed", StatusClosed, true},
		{"Testing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("critical")
	assert.True(t, ok)
	assert.Equal(t, PriorityCritical, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestStatusesOrder(t *testing.T) {
	assert.Equal(t, []Status{"Open", "In Progress", "In Review", "Resolved", "Closed"}, Statuses())

	// callers cannot mutate the canonical order
	s := Statuses()
	s[0] = "Bogus"
	assert.Equal(t, StatusOpen, Statuses()[0])
}

func TestIssueDraft_NewIssueDefaults(t *testing.T) {
	issue := IssueDraft{Title: ptr("  Bug A  ")}.NewIssue()
	assert.Equal(t, "Bug A", issue.Title)
	assert.Equal(t, StatusOpen, issue.Status)
	assert.Equal(t, PriorityMedium, issue.Priority)
	assert.Empty(t, issue.ID)
}

func TestIssueDraft_ApplyPartial(t *testing.T) {
	issue := Issue{Title: "t", Description: "d", Status: StatusOpen, Priority: PriorityLow}
	IssueDraft{Status: ptr(StatusClosed)}.Apply(&issue)

	assert.Equal(t, Issue{Title: "t", Description: "d", Status: StatusClosed, Priority: PriorityLow}, issue)
}

func TestIssueDraft_Validate(t *testing.T) {
	tests := []struct {
		name    string
		draft   IssueDraft
		create  bool
		wantErr bool
	}{
		{"create without title", IssueDraft{}, true, true},
		{"create blank title", IssueDraft{Title: ptr("   ")}, true, true},
		{"create ok", IssueDraft{Title: ptr("x")}, true, false},
		{"update empty is ok", IssueDraft{}, false, false},
		{"bad status", IssueDraft{Status: ptr(Status("Testing"))}, false, true},
		{"bad priority", IssueDraft{Priority: ptr(Priority("Urgent"))}, false, true},
		{"good enums", IssueDraft{Status: ptr(StatusInReview), Priority: ptr(PriorityCritical)}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.create {
				err = tt.draft.ValidateForCreate()
			} else {
				err = tt.draft.Validate()
			}
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperr.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIssueDraft_JSONOmitsUnsetFields(t *testing.T) {
	b, err := json.Marshal(StatusDraft(StatusResolved))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Resolved"}`, string(b))

	var d IssueDraft
	require.NoError(t, json.Unmarshal([]byte(`{"priority":"High"}`), &d))
	assert.Nil(t, d.Title)
	assert.Equal(t, PriorityHigh, *d.Priority)
}

func TestIssue_Activity(t *testing.T) {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	issue := Issue{CreatedAt: created}
	assert.Equal(t, []Activity{{Kind: ActivityCreated, At: created}}, issue.Activity())

	updated := created.Add(time.Hour)
	issue.UpdatedAt = &updated
	feed := issue.Activity()
	require.Len(t, feed, 2)
	assert.Equal(t, ActivityUpdated, feed[1].Kind)
	assert.Equal(t, updated, feed[1].At)
}

func TestIssue_JSONUpdatedAtAbsent(t *testing.T) {
	b, err := json.Marshal(Issue{ID: "1", Title: "t", Status: StatusOpen, Priority: PriorityLow})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "updatedAt")
	assert.Contains(t, string(b), `"createdAt"`)
}
