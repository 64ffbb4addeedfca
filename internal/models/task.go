package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority levels for a task.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Timestamp is a time.Time that accepts both RFC 3339 and the zone-less
// "2006-01-02T15:04" form produced by datetime inputs, and always
// serializes as RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// NewTimestamp wraps a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(ts.Format(time.RFC3339))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Task represents a single tracked to-do item.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Priority      string     `json:"priority"` // "high", "medium", "low"
	DueAt         Timestamp  `json:"dueAt"`
	Completed     bool       `json:"completed"`
	CreatedAt     Timestamp  `json:"createdAt"`
	ReminderAt    *Timestamp `json:"reminderAt,omitempty"`
	NLPSourceText string     `json:"nlpSourceText,omitempty"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if t.DueAt.IsZero() {
		return &ValidationError{Field: "dueAt", Message: "due date/time is required"}
	}
	if t.Priority != PriorityHigh && t.Priority != PriorityMedium && t.Priority != PriorityLow {
		return &ValidationError{Field: "priority", Message: "priority must be 'high', 'medium', or 'low'"}
	}
	return nil
}

// IsOverdue returns true if the task has a due date that has passed and is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Completed || t.DueAt.IsZero() {
		return false
	}
	return t.DueAt.Before(now)
}

// HasArmedReminder reports whether a reminder is set and still in the future.
func (t *Task) HasArmedReminder(now time.Time) bool {
	return t.ReminderAt != nil && t.ReminderAt.After(now)
}

// PriorityRank returns a numeric value for sorting by priority.
// Lower numbers indicate higher priority.
func (t *Task) PriorityRank() int {
	switch t.Priority {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 99
	}
}

// ValidationError is a client-side, pre-network rejection of a draft or patch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
