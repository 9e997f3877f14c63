package domain

import (
	"strings"
	"time"
)

// Task status values. Input is matched case-insensitively against this set,
// but the status is stored exactly as the client provided it.
const (
	StatusBlocked    = "Blocked"
	StatusBacklog    = "Backlog"
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// TaskStatuses lists every accepted task status in display order.
var TaskStatuses = []string{
	StatusBlocked,
	StatusBacklog,
	StatusPending,
	StatusInProgress,
	StatusDone,
}

// Task is the single persisted business entity: a unit of work with a due date,
// an optional reminder address, and a storage location for uploaded files.
type Task struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	DueDate      time.Time `json:"due_date"`
	FilePath     *string   `json:"file_path"`
	EmailAddress *string   `json:"email_address"`
}

// NewTask builds a Task from client supplied fields and validates it.
// The ID is left zero; the store assigns it on insert.
func NewTask(title, description, status string, dueDate time.Time, emailAddress *string) (*Task, error) {
	task := &Task{
		Title:        title,
		Description:  description,
		Status:       status,
		DueDate:      dueDate.UTC(),
		EmailAddress: normalizeOptional(emailAddress),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the invariants that hold for every stored task.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "cannot be empty", ErrEmptyContent)
	}

	if !IsValidStatus(t.Status) {
		return NewValidationError(
			"status",
			"must be one of "+strings.Join(TaskStatuses, ", "),
			ErrInvalidStatus,
		)
	}

	if t.DueDate.IsZero() {
		return NewValidationError("due_date", "is required", ErrInvalidDueDate)
	}

	return nil
}

// IsValidStatus reports whether status names one of TaskStatuses, ignoring case.
func IsValidStatus(status string) bool {
	for _, s := range TaskStatuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

// ParseStatusFilter splits a comma-separated status list into lower-cased,
// trimmed values, dropping empty entries.
func ParseStatusFilter(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	statuses := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			statuses = append(statuses, p)
		}
	}
	return statuses
}

// normalizeOptional turns a pointer to a blank string into nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
