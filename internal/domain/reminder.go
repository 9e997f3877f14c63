package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultReminderLead is how long before a task's due date its reminder fires.
const DefaultReminderLead = time.Hour

// ReminderState represents the delivery state of a scheduled reminder.
type ReminderState string

// Possible reminder states
const (
	ReminderStatePending    ReminderState = "pending"
	ReminderStateProcessing ReminderState = "processing"
	ReminderStateSent       ReminderState = "sent"
	ReminderStateFailed     ReminderState = "failed"
)

// ReminderPayload is a value snapshot of the task fields a reminder needs.
// It is copied when the reminder is scheduled; later edits to the task
// are not reflected in it.
type ReminderPayload struct {
	TaskID       int64     `json:"task_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	DueDate      time.Time `json:"due_date"`
	Description  string    `json:"description"`
	EmailAddress string    `json:"email_address"`
}

// NewReminderPayload snapshots the given task.
func NewReminderPayload(task *Task) ReminderPayload {
	payload := ReminderPayload{
		TaskID:      task.ID,
		Title:       task.Title,
		Status:      task.Status,
		DueDate:     task.DueDate,
		Description: task.Description,
	}
	if task.EmailAddress != nil {
		payload.EmailAddress = *task.EmailAddress
	}
	return payload
}

// ReminderFireTime returns when a reminder for a task due at dueDate should fire.
func ReminderFireTime(dueDate time.Time, lead time.Duration) time.Time {
	return dueDate.Add(-lead)
}

// Reminder is a scheduled, persisted delivery of a ReminderPayload.
type Reminder struct {
	ID           uuid.UUID
	Payload      ReminderPayload
	FireAt       time.Time
	State        ReminderState
	ErrorMessage string
	AttemptedAt  *time.Time // last claim for delivery
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewReminder creates a pending reminder firing at fireAt.
func NewReminder(fireAt time.Time, payload ReminderPayload) *Reminder {
	now := time.Now().UTC()
	return &Reminder{
		ID:        uuid.New(),
		Payload:   payload,
		FireAt:    fireAt.UTC(),
		State:     ReminderStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDue reports whether the reminder should be dispatched at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.FireAt.After(now)
}
