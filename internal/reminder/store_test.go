package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/store"
)

// memoryReminderStore is an in-memory store.ReminderStore used by the tests.
type memoryReminderStore struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*domain.Reminder
	saveErr   error
	claimErr  error
	claims    int
}

var _ store.ReminderStore = (*memoryReminderStore)(nil)

func newMemoryReminderStore() *memoryReminderStore {
	return &memoryReminderStore{reminders: make(map[uuid.UUID]*domain.Reminder)}
}

func (m *memoryReminderStore) Save(_ context.Context, r *domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *r
	m.reminders[r.ID] = &cp
	return nil
}

func (m *memoryReminderStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	if m.claimErr != nil {
		return nil, m.claimErr
	}

	var due []*domain.Reminder
	for _, r := range m.reminders {
		if r.State == domain.ReminderStatePending && r.IsDue(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*domain.Reminder, 0, len(due))
	for _, r := range due {
		r.State = domain.ReminderStateProcessing
		r.UpdatedAt = now
		cp := *r
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (m *memoryReminderStore) UpdateState(
	_ context.Context,
	id uuid.UUID,
	state domain.ReminderState,
	errorMsg string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return store.ErrReminderNotFound
	}
	r.State = state
	r.ErrorMessage = errorMsg
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryReminderStore) ResetStuck(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	n := 0
	for _, r := range m.reminders {
		if r.State == domain.ReminderStateProcessing && r.UpdatedAt.Before(cutoff) {
			r.State = domain.ReminderStatePending
			n++
		}
	}
	return n, nil
}

func (m *memoryReminderStore) ListByTask(_ context.Context, taskID int64) ([]*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reminder
	for _, r := range m.reminders {
		if r.Payload.TaskID == taskID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryReminderStore) get(id uuid.UUID) domain.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.reminders[id]
}

func (m *memoryReminderStore) onlyReminder() domain.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		return *r
	}
	panic("no reminders stored")
}

// deadlineReminderStore fails state writes whose context is already done,
// the way database/sql does.
type deadlineReminderStore struct {
	*memoryReminderStore
}

func (d deadlineReminderStore) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	state domain.ReminderState,
	errorMsg string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.memoryReminderStore.UpdateState(ctx, id, state, errorMsg)
}

// recordingNotifier records every payload it is asked to deliver.
type recordingNotifier struct {
	mu        sync.Mutex
	delivered []domain.ReminderPayload
	NotifyFn  func(ctx context.Context, payload domain.ReminderPayload) error
}

func (n *recordingNotifier) Notify(ctx context.Context, payload domain.ReminderPayload) error {
	n.mu.Lock()
	n.delivered = append(n.delivered, payload)
	fn := n.NotifyFn
	n.mu.Unlock()
	if fn != nil {
		return fn(ctx, payload)
	}
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

var errNotifyFailed = errors.New("mail provider rejected message")

// wakeCounter records Wake calls.
type wakeCounter struct {
	mu sync.Mutex
	n  int
}

func (w *wakeCounter) Wake() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n++
}

func (w *wakeCounter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
