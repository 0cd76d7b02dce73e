package models

import (
	"strings"
	"time"
)

// Status is the workflow state of an issue.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusInReview   Status = "In Review"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// statusOrder is the canonical status set, in display order.
var statusOrder = []Status{StatusOpen, StatusInProgress, StatusInReview, StatusResolved, StatusClosed}

// Statuses returns every valid status in display order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, v := range statusOrder {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus resolves user input such as "in-progress", "IN_REVIEW" or
// "closed" to a canonical status.
func ParseStatus(s string) (Status, bool) {
	key := normalize(s)
	for _, v := range statusOrder {
		if normalize(string(v)) == key {
			return v, true
		}
	}
	return "", false
}

// Priority is the urgency of an issue.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var priorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Priorities returns every valid priority from lowest to highest.
func Priorities() []Priority {
	out := make([]Priority, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// Valid reports whether p is one of the canonical priorities.
func (p Priority) Valid() bool {
	for _, v := range priorityOrder {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePriority resolves user input such as "high" to a canonical priority.
func ParsePriority(s string) (Priority, bool) {
	key := normalize(s)
	for _, v := range priorityOrder {
		if normalize(string(v)) == key {
			return v, true
		}
	}
	return "", false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

// Issue is a tracked unit of work.
type Issue struct {
	// ID is assigned by the store at creation and never changes.
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Status      Status   `json:"status" yaml:"status"`
	Priority    Priority `json:"priority" yaml:"priority"`
	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	// UpdatedAt is nil until the first mutation.
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// ActivityKind names an entry of the synthesized activity feed.
type ActivityKind string

const (
	ActivityCreated ActivityKind = "created"
	ActivityUpdated ActivityKind = "updated"
)

// Activity is one entry of an issue's activity feed.
type Activity struct {
	Kind ActivityKind `json:"kind"`
	At   time.Time    `json:"at"`
}

// Activity returns the issue's feed, oldest first. Nothing is stored: the
// feed is derived from CreatedAt and UpdatedAt alone.
func (i Issue) Activity() []Activity {
	feed := []Activity{{Kind: ActivityCreated, At: i.CreatedAt}}
	if i.UpdatedAt != nil {
		feed = append(feed, Activity{Kind: ActivityUpdated, At: *i.UpdatedAt})
	}
	return feed
}
