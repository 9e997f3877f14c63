package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
var (
	// ErrTaskNotFound indicates that the task does not exist.
	// API layer maps this to 404 for reads and 400 for mutations.
	ErrTaskNotFound = errors.New("task not found")

	// ErrReminderNotScheduled indicates the task was stored but its reminder
	// could not be registered. The error is a *ReminderNotScheduledError
	// carrying the created task.
	ErrReminderNotScheduled = errors.New("task created but reminder not scheduled")

	// ErrNoStorageLocation indicates the task has no storage location to
	// receive uploaded files.
	ErrNoStorageLocation = errors.New("task has no storage location")
)

// ReminderNotScheduledError reports a partial failure of task creation:
// the task is committed, the reminder is not.
type ReminderNotScheduledError struct {
	// Task is the created task.
	Task *domain.Task
	// Err is the scheduler failure.
	Err error
}

// Error implements the error interface.
func (e *ReminderNotScheduledError) Error() string {
	return fmt.Sprintf("%s (task %d): %v", ErrReminderNotScheduled, e.Task.ID, e.Err)
}

// Unwrap returns the scheduler failure.
func (e *ReminderNotScheduledError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrReminderNotScheduled.
func (e *ReminderNotScheduledError) Is(target error) bool {
	return target == ErrReminderNotScheduled
}

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "attach_file")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// Known sentinel and validation errors are returned without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return err
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
