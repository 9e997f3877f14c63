package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/filestore"
	"github.com/phrazzld/taskr-api/internal/metrics"
	"github.com/phrazzld/taskr-api/internal/platform/logger"
	"github.com/phrazzld/taskr-api/internal/reminder"
	"github.com/phrazzld/taskr-api/internal/store"
)

// CreateTaskInput carries the client supplied fields of a new task.
type CreateTaskInput struct {
	Title        string
	Description  string
	Status       string
	DueDate      time.Time
	EmailAddress *string
}

// Attachment describes a file stored for a task.
type Attachment struct {
	// Name is the sanitized file name.
	Name string
	// Path is where the file was stored.
	Path string
}

// ReminderLister reads back the reminders registered for a task.
type ReminderLister interface {
	ListByTask(ctx context.Context, taskID int64) ([]*domain.Reminder, error)
}

// TaskService provides task-related operations
type TaskService interface {
	// GetTask retrieves a task by its ID
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// ListTasks returns the tasks matching filter
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)

	// CreateTask validates and stores a new task, allocates its storage
	// location and schedules its reminder
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// UpdateTask applies an allow-listed partial update. Registered
	// reminders are left as they are.
	UpdateTask(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error)

	// DeleteTask removes a task and returns it as it was. Registered
	// reminders are left as they are.
	DeleteTask(ctx context.Context, id int64) (*domain.Task, error)

	// AttachFile stores r under the task's storage location
	AttachFile(ctx context.Context, id int64, filename string, r io.Reader) (*Attachment, error)

	// ListReminders returns the reminders registered for a task
	ListReminders(ctx context.Context, id int64) ([]*domain.Reminder, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks     store.TaskStore
	reminders ReminderLister
	storage   filestore.Storage
	scheduler reminder.Scheduler
	lead      time.Duration
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	reminders ReminderLister,
	storage filestore.Storage,
	scheduler reminder.Scheduler,
	lead time.Duration,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if reminders == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "reminder lister cannot be nil"}
	}
	if storage == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "storage cannot be nil"}
	}
	if scheduler == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "scheduler cannot be nil"}
	}
	if lead < 0 {
		return nil, &TaskServiceError{Operation: "create_service", Message: "reminder lead cannot be negative"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:     tasks,
		reminders: reminders,
		storage:   storage,
		scheduler: scheduler,
		lead:      lead,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// GetTask retrieves a task by its ID
func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ListTasks returns the tasks matching filter
func (s *taskServiceImpl) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		if errors.Is(err, store.ErrInvalidFilter) {
			return nil, err
		}
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// CreateTask validates and stores a new task, then schedules its reminder at
// due date minus the configured lead.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// 1. Build and validate the task
	task, err := domain.NewTask(input.Title, input.Description, input.Status, input.DueDate, input.EmailAddress)
	if err != nil {
		log.Debug("task validation failed", "error", err)
		return nil, err
	}

	// 2. Allocate the task's storage location
	location, err := s.storage.CreateLocation(ctx)
	if err != nil {
		log.Error("failed to create storage location", "error", err)
		return nil, NewTaskServiceError("create_task", "failed to create storage location", err)
	}
	task.FilePath = &location

	// 3. Persist
	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to save task", "error", err, "file_path", location)
		if rmErr := s.storage.RemoveLocation(context.WithoutCancel(ctx), location); rmErr != nil {
			log.Warn("failed to remove unused storage location",
				"error", rmErr,
				"file_path", location)
		}
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}
	metrics.TasksCreated.Inc()

	// 4. Register the reminder with a snapshot of the task
	fireAt := domain.ReminderFireTime(task.DueDate, s.lead)
	if err := s.scheduler.ScheduleAt(ctx, fireAt, domain.NewReminderPayload(task)); err != nil {
		log.Error("task created but reminder scheduling failed",
			"error", err,
			"task_id", task.ID,
			"fire_at", fireAt)
		return task, &ReminderNotScheduledError{Task: task, Err: err}
	}

	log.Info("task created",
		"task_id", task.ID,
		"fire_at", fireAt)
	return task, nil
}

// validateUpdate checks the fields an update sets against the task invariants.
func validateUpdate(update store.TaskUpdate) error {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return domain.NewValidationError("title", "cannot be empty", domain.ErrEmptyContent)
	}
	if update.Status != nil && !domain.IsValidStatus(*update.Status) {
		return domain.NewValidationError("status",
			"must be one of: "+strings.Join(domain.TaskStatuses, ", "), domain.ErrInvalidStatus)
	}
	if update.DueDate != nil && update.DueDate.IsZero() {
		return domain.NewValidationError("due_date", "cannot be empty", domain.ErrInvalidDueDate)
	}
	return nil
}

// UpdateTask applies an allow-listed partial update
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id int64,
	update store.TaskUpdate,
) (*domain.Task, error) {
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	task, err := s.tasks.Update(ctx, id, update)
	if err != nil {
		return nil, NewTaskServiceError("update_task", "failed to update task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task updated", "task_id", id)
	return task, nil
}

// DeleteTask removes a task and returns it as it was
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted", "task_id", id)
	return task, nil
}

// AttachFile stores r under the task's storage location with a sanitized name
func (s *taskServiceImpl) AttachFile(
	ctx context.Context,
	id int64,
	filename string,
	r io.Reader,
) (*Attachment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	name, err := filestore.SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("attach_file", "failed to retrieve task", err)
	}

	if task.FilePath == nil || *task.FilePath == "" {
		return nil, ErrNoStorageLocation
	}

	path, err := s.storage.Save(ctx, *task.FilePath, name, r)
	if err != nil {
		if errors.Is(err, filestore.ErrFileExists) || errors.Is(err, filestore.ErrInvalidFilename) {
			return nil, err
		}
		log.Error("failed to store uploaded file", "error", err, "task_id", id)
		return nil, NewTaskServiceError("attach_file", "failed to store file", err)
	}
	metrics.FilesUploaded.Inc()

	log.Info("file attached to task", "task_id", id, "file", path)
	return &Attachment{Name: name, Path: path}, nil
}

// ListReminders returns the reminders registered for a task. Reminders
// outlive their task, so an unknown task id is not an error.
func (s *taskServiceImpl) ListReminders(ctx context.Context, id int64) ([]*domain.Reminder, error) {
	reminders, err := s.reminders.ListByTask(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("list_reminders", "failed to list reminders", err)
	}
	return reminders, nil
}
