package domain

import (
	"strings"
	"time"
)

// DueDateLayout is the wire format used when rendering due dates.
const DueDateLayout = "2006-01-02T15:04:05"

// dueDateLayouts are tried in order when parsing client supplied dates.
// Layouts without a zone are interpreted as UTC.
var dueDateLayouts = []string{
	time.RFC3339,
	DueDateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseDueDate parses an ISO-8601 style timestamp or date.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, NewValidationError("due_date", "is required", ErrInvalidDueDate)
	}

	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, NewValidationError(
		"due_date",
		"must be an ISO-8601 timestamp such as 2030-01-01T10:00:00",
		ErrInvalidDueDate,
	)
}

// FormatDueDate renders a due date in DueDateLayout (UTC, no zone suffix).
func FormatDueDate(t time.Time) string {
	return t.UTC().Format(DueDateLayout)
}
