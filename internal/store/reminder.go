package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr-api/internal/domain"
)

// ReminderStore defines the interface for persisting scheduled reminders.
// It is the backend of the reminder scheduler and the work source of the runner.
// Version: 1.0
type ReminderStore interface {
	// Save persists a new pending reminder.
	Save(ctx context.Context, reminder *domain.Reminder) error

	// ClaimDue atomically moves up to limit pending reminders whose fire time
	// is at or before now into the processing state and returns them.
	// A reminder is returned by at most one concurrent caller.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.Reminder, error)

	// UpdateState records the outcome of a delivery attempt.
	// Returns ErrReminderNotFound if the reminder does not exist.
	UpdateState(ctx context.Context, id uuid.UUID, state domain.ReminderState, errorMsg string) error

	// ResetStuck returns reminders that have been processing for longer than
	// olderThan to the pending state and reports how many were reset.
	ResetStuck(ctx context.Context, olderThan time.Duration) (int, error)

	// ListByTask returns every reminder registered for a task, oldest first.
	ListByTask(ctx context.Context, taskID int64) ([]*domain.Reminder, error)
}
