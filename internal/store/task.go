package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/taskr-api/internal/domain"
)

// SortDirection orders list results by due date.
type SortDirection string

// Supported sort directions. SortNone keeps the store's default ordering.
const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts "asc" or "desc" in any case.
// An empty string yields SortNone; anything else is ErrInvalidFilter.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SortNone, nil
	case "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return SortNone, fmt.Errorf("%w: unsupported due date sort %q", ErrInvalidFilter, raw)
	}
}

// TaskFilter narrows a task listing. Zero-valued fields are not applied;
// all set fields are combined with AND.
type TaskFilter struct {
	// Statuses matches tasks whose lower-cased status is in the set.
	// Values must already be lower-cased.
	Statuses []string

	// Title matches the task title exactly, ignoring case.
	Title string

	// DueBefore keeps tasks due strictly before this time.
	DueBefore *time.Time

	// DueAfter keeps tasks due strictly after this time.
	DueAfter *time.Time

	// Sort orders the result by due date.
	Sort SortDirection
}

// TaskUpdate lists the fields a client may change on an existing task.
// Nil fields are left untouched.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Status       *string
	DueDate      *time.Time
	EmailAddress *string
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil &&
		u.Description == nil &&
		u.Status == nil &&
		u.DueDate == nil &&
		u.EmailAddress == nil
}

// TaskStore defines the interface for task data persistence.
// Version: 1.0
type TaskStore interface {
	// Create saves a new task and assigns its ID.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// List returns the tasks matching filter.
	// Returns an empty slice if nothing matches.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Update applies update to the task and returns the stored result.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, id int64, update TaskUpdate) (*domain.Task, error)

	// Delete removes the task and returns it as it was before deletion.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) (*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
