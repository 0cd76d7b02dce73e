// Package aggregator derives the dashboard view from a fetched issue list:
// it narrows the list with a user-chosen Filter and buckets the survivors
// by status in a fixed display order.
//
// Everything here is a pure function of its inputs. Nothing is cached; the
// view is recomputed whenever the filter or the source list changes.
package aggregator

import (
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/issuetracker/internal/models"
)

// DateLayout is the accepted format of filter date bounds.
const DateLayout = "2006-01-02"

// Filter is the set of constraints narrowing the issue list. The zero
// value imposes no constraint.
type Filter struct {
	// SearchTerm matches case-insensitively against title or description.
	SearchTerm string
	// Statuses restricts the list to these statuses when non-empty.
	Statuses []models.Status
	// Priorities restricts the list to these priorities when non-empty.
	Priorities []models.Priority
	// StartDate keeps issues created on or after this day.
	StartDate *time.Time
	// EndDate keeps issues created on or before this day, up to 23:59:59.
	EndDate *time.Time
	// Location defines day boundaries for the date bounds. Nil means UTC.
	Location *time.Location
}

// ParseDate parses a YYYY-MM-DD date bound.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// IsZero reports whether no constraint is active.
func (f Filter) IsZero() bool {
	return f.SearchTerm == "" && len(f.Statuses) == 0 && len(f.Priorities) == 0 &&
		f.StartDate == nil && f.EndDate == nil
}

// Active returns a short label per active constraint, in a stable order,
// for display next to the filtered list.
func (f Filter) Active() []string {
	var labels []string
	if f.SearchTerm != "" {
		labels = append(labels, fmt.Sprintf("search: %q", f.SearchTerm))
	}
	for _, s := range f.Statuses {
		labels = append(labels, "status: "+string(s))
	}
	for _, p := range f.Priorities {
		labels = append(labels, "priority: "+string(p))
	}
	if f.StartDate != nil {
		labels = append(labels, "from: "+f.StartDate.Format(DateLayout))
	}
	if f.EndDate != nil {
		labels = append(labels, "to: "+f.EndDate.Format(DateLayout))
	}
	return labels
}

func (f Filter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// startOfDay returns 00:00:00 of d's calendar day in loc.
func startOfDay(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// endOfDay returns 23:59:59 of d's calendar day in loc. The bound has
// second precision: an issue created at 23:59:59.5 falls outside it.
func endOfDay(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 23, 59, 59, 0, loc)
}

// Apply returns the issues that pass every active constraint of f, in
// their original order. The input slice is never modified.
func Apply(issues []models.Issue, f Filter) []models.Issue {
	term := strings.ToLower(f.SearchTerm)
	loc := f.location()

	var start, end time.Time
	if f.StartDate != nil {
		start = startOfDay(*f.StartDate, loc)
	}
	if f.EndDate != nil {
		end = endOfDay(*f.EndDate, loc)
	}

	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if term != "" &&
			!strings.Contains(strings.ToLower(issue.Title), term) &&
			!strings.Contains(strings.ToLower(issue.Description), term) {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, issue.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !contains(f.Priorities, issue.Priority) {
			continue
		}
		if f.StartDate != nil && issue.CreatedAt.Before(start) {
			continue
		}
		if f.EndDate != nil && issue.CreatedAt.After(end) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// StatusGroup is a bucket of issues sharing one status.
type StatusGroup struct {
	Status models.Status  `json:"status" yaml:"status"`
	Issues []models.Issue `json:"issues" yaml:"issues"`
}

// GroupByStatus buckets issues by status in the fixed order Open, In
// Progress, In Review, Resolved, Closed. Statuses without issues are
// omitted. An issue whose status is outside that set belongs to no group
// and is dropped.
func GroupByStatus(issues []models.Issue) []StatusGroup {
	buckets := make(map[models.Status][]models.Issue)
	for _, issue := range issues {
		buckets[issue.Status] = append(buckets[issue.Status], issue)
	}

	var groups []StatusGroup
	for _, s := range models.Statuses() {
		if len(buckets[s]) == 0 {
			continue
		}
		groups = append(groups, StatusGroup{Status: s, Issues: buckets[s]})
	}
	return groups
}

// StatusSuggestions returns the statuses whose name contains term,
// case-insensitively, in display order. An empty term suggests nothing.
func StatusSuggestions(term string) []models.Status {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []models.Status
	for _, s := range models.Statuses() {
		if strings.Contains(strings.ToLower(string(s)), term) {
			out = append(out, s)
		}
	}
	return out
}

// CountLabel renders the list header, "1 Issue" or "N Issues".
func CountLabel(n int) string {
	if n == 1 {
		return "1 Issue"
	}
	return fmt.Sprintf("%d Issues", n)
}
