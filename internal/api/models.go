package api

import (
	"time"

	"github.com/phrazzld/taskr-api/internal/domain"
)

// CreateTaskRequest defines the payload for creating a task.
// Description must be present but may be empty.
type CreateTaskRequest struct {
	Title        string  `json:"title"         validate:"required"`
	Description  *string `json:"description"   validate:"required"`
	Status       string  `json:"status"        validate:"required"`
	DueDate      string  `json:"due_date"      validate:"required"`
	EmailAddress *string `json:"email_address"`
}

// UpdateTaskRequest lists the fields a client may change. Absent fields are
// left untouched; file_path is not client-writable.
type UpdateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	DueDate      *string `json:"due_date"`
	EmailAddress *string `json:"email_address"`
}

// TaskResponse is the wire shape of a task.
type TaskResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	DueDate      string  `json:"due_date"`
	FilePath     *string `json:"file_path"`
	EmailAddress *string `json:"email_address"`
}

// TaskListResponse wraps a task listing. Error is set only on 400 responses,
// in which case Tasks is empty.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Error string         `json:"error,omitempty"`
}

// UploadResponse is returned after a file is stored for a task.
type UploadResponse struct {
	Message string `json:"message"`
	File    string `json:"file"`
}

// ReminderResponse is the wire shape of a scheduled reminder.
type ReminderResponse struct {
	ID           string  `json:"id"`
	TaskID       int64   `json:"task_id"`
	FireAt       string  `json:"fire_at"`
	State        string  `json:"state"`
	EmailAddress string  `json:"email_address,omitempty"`
	Error        string  `json:"error,omitempty"`
	AttemptedAt  *string `json:"attempted_at,omitempty"`
}

// ReminderListResponse wraps the reminders registered for a task.
type ReminderListResponse struct {
	Reminders []ReminderResponse `json:"reminders"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		DueDate:      domain.FormatDueDate(task.DueDate),
		FilePath:     task.FilePath,
		EmailAddress: task.EmailAddress,
	}
}

func tasksToResponse(tasks []*domain.Task) TaskListResponse {
	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(task))
	}
	return resp
}

func remindersToResponse(reminders []*domain.Reminder) ReminderListResponse {
	resp := ReminderListResponse{Reminders: make([]ReminderResponse, 0, len(reminders))}
	for _, r := range reminders {
		item := ReminderResponse{
			ID:           r.ID.String(),
			TaskID:       r.Payload.TaskID,
			FireAt:       r.FireAt.UTC().Format(time.RFC3339),
			State:        string(r.State),
			EmailAddress: r.Payload.EmailAddress,
			Error:        r.ErrorMessage,
		}
		if r.AttemptedAt != nil {
			at := r.AttemptedAt.UTC().Format(time.RFC3339)
			item.AttemptedAt = &at
		}
		resp.Reminders = append(resp.Reminders, item)
	}
	return resp
}
