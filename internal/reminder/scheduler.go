package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/metrics"
	"github.com/phrazzld/taskr-api/internal/platform/logger"
	"github.com/phrazzld/taskr-api/internal/redact"
	"github.com/phrazzld/taskr-api/internal/store"
)

// Scheduler registers work to run at a wall-clock time.
type Scheduler interface {
	// ScheduleAt registers a reminder carrying payload to fire at fireAt.
	// It returns once the reminder is registered; delivery happens later in a
	// runner. A fireAt in the past is delivered as soon as possible.
	ScheduleAt(ctx context.Context, fireAt time.Time, payload domain.ReminderPayload) error
}

// Waker is notified when a reminder becomes due immediately.
type Waker interface {
	Wake()
}

// StoreScheduler is a Scheduler backed by a ReminderStore.
type StoreScheduler struct {
	store  store.ReminderStore
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	waker Waker
}

var _ Scheduler = (*StoreScheduler)(nil)

// NewStoreScheduler creates a scheduler persisting reminders to reminderStore.
func NewStoreScheduler(reminderStore store.ReminderStore, logger *slog.Logger) *StoreScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreScheduler{
		store:  reminderStore,
		logger: logger.With(slog.String("component", "reminder_scheduler")),
		now:    time.Now,
	}
}

// SetWaker attaches an in-process runner to be woken for reminders that are
// already due, so they skip the wait for the next poll.
func (s *StoreScheduler) SetWaker(w Waker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waker = w
}

// ScheduleAt implements Scheduler.
func (s *StoreScheduler) ScheduleAt(ctx context.Context, fireAt time.Time, payload domain.ReminderPayload) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	reminder := domain.NewReminder(fireAt, payload)
	if err := s.store.Save(ctx, reminder); err != nil {
		log.Error("failed to register reminder",
			slog.String("error", redact.Error(err)),
			slog.Int64("task_id", payload.TaskID))
		return fmt.Errorf("failed to register reminder: %w", err)
	}

	metrics.RemindersScheduled.Inc()
	log.Info("reminder scheduled",
		slog.String("reminder_id", reminder.ID.String()),
		slog.Int64("task_id", payload.TaskID),
		slog.Time("fire_at", reminder.FireAt))

	if reminder.IsDue(s.now()) {
		s.mu.RLock()
		w := s.waker
		s.mu.RUnlock()
		if w != nil {
			w.Wake()
		}
	}

	return nil
}
