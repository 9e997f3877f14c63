package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/platform/logger"
	"github.com/phrazzld/taskr-api/internal/redact"
	"github.com/phrazzld/taskr-api/internal/store"
)

const reminderColumns = `id, task_id, title, description, status, due_date, email_address,
	fire_at, state, error_message, attempted_at, created_at, updated_at`

// PostgresReminderStore implements the store.ReminderStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReminderStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReminderStore creates a new PostgreSQL implementation of the ReminderStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresReminderStore(db store.DBTX, logger *slog.Logger) *PostgresReminderStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReminderStore{
		db:     db,
		logger: logger.With(slog.String("component", "reminder_store")),
	}
}

// Ensure PostgresReminderStore implements store.ReminderStore interface
var _ store.ReminderStore = (*PostgresReminderStore)(nil)

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var (
		r           domain.Reminder
		state       string
		attemptedAt sql.NullTime
	)

	if err := row.Scan(
		&r.ID,
		&r.Payload.TaskID,
		&r.Payload.Title,
		&r.Payload.Description,
		&r.Payload.Status,
		&r.Payload.DueDate,
		&r.Payload.EmailAddress,
		&r.FireAt,
		&state,
		&r.ErrorMessage,
		&attemptedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.State = domain.ReminderState(state)
	r.Payload.DueDate = r.Payload.DueDate.UTC()
	r.FireAt = r.FireAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	if attemptedAt.Valid {
		t := attemptedAt.Time.UTC()
		r.AttemptedAt = &t
	}

	return &r, nil
}

func (s *PostgresReminderStore) queryReminders(
	ctx context.Context,
	log *slog.Logger,
	query string,
	args ...any,
) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	reminders := make([]*domain.Reminder, 0)
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, MapError(err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return reminders, nil
}

// Save implements store.ReminderStore.Save
func (s *PostgresReminderStore) Save(ctx context.Context, reminder *domain.Reminder) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO reminders (id, task_id, title, description, status, due_date, email_address,
			fire_at, state, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		reminder.ID,
		reminder.Payload.TaskID,
		reminder.Payload.Title,
		reminder.Payload.Description,
		reminder.Payload.Status,
		reminder.Payload.DueDate.UTC(),
		reminder.Payload.EmailAddress,
		reminder.FireAt.UTC(),
		string(reminder.State),
		reminder.ErrorMessage,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save reminder",
			slog.String("error", redact.Error(err)),
			slog.String("reminder_id", reminder.ID.String()),
			slog.Int64("task_id", reminder.Payload.TaskID))
		return store.NewStoreError("reminder", "save", "failed to insert reminder", MapError(err))
	}

	log.Debug("reminder saved",
		slog.String("reminder_id", reminder.ID.String()),
		slog.Int64("task_id", reminder.Payload.TaskID),
		slog.Time("fire_at", reminder.FireAt))
	return nil
}

// ClaimDue implements store.ReminderStore.ClaimDue
// Rows are locked with SKIP LOCKED so concurrent claimers receive disjoint sets.
func (s *PostgresReminderStore) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.Reminder, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE reminders
		SET state = 'processing', attempted_at = $1, updated_at = $1
		WHERE id IN (
			SELECT id FROM reminders
			WHERE state = 'pending' AND fire_at <= $1
			ORDER BY fire_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + reminderColumns

	reminders, err := s.queryReminders(ctx, log, query, now.UTC(), limit)
	if err != nil {
		log.Error("failed to claim due reminders", slog.String("error", redact.Error(err)))
		return nil, err
	}

	if len(reminders) > 0 {
		log.Debug("claimed due reminders", slog.Int("count", len(reminders)))
	}
	return reminders, nil
}

// UpdateState implements store.ReminderStore.UpdateState
// Returns store.ErrReminderNotFound if the reminder does not exist.
func (s *PostgresReminderStore) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	state domain.ReminderState,
	errorMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE reminders
		SET state = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, string(state), errorMsg, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update reminder state",
			slog.String("error", redact.Error(err)),
			slog.String("reminder_id", id.String()),
			slog.String("state", string(state)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrReminderNotFound); err != nil {
		log.Warn("no reminder found to update state",
			slog.String("reminder_id", id.String()))
		return err
	}

	return nil
}

// ResetStuck implements store.ReminderStore.ResetStuck
func (s *PostgresReminderStore) ResetStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		UPDATE reminders
		SET state = 'pending', updated_at = $1
		WHERE state = 'processing' AND updated_at < $2
	`

	result, err := s.db.ExecContext(ctx, query, now, now.Add(-olderThan))
	if err != nil {
		log.Error("failed to reset stuck reminders", slog.String("error", redact.Error(err)))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	if n > 0 {
		log.Warn("reset stuck reminders to pending", slog.Int64("count", n))
	}
	return int(n), nil
}

// ListByTask implements store.ReminderStore.ListByTask
func (s *PostgresReminderStore) ListByTask(ctx context.Context, taskID int64) ([]*domain.Reminder, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE task_id = $1 ORDER BY created_at ASC, id ASC`

	reminders, err := s.queryReminders(ctx, log, query, taskID)
	if err != nil {
		log.Error("failed to list reminders for task",
			slog.String("error", redact.Error(err)),
			slog.Int64("task_id", taskID))
		return nil, err
	}
	return reminders, nil
}
