package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/filestore"
	"github.com/phrazzld/taskr-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	tasks     *MockTaskStore
	reminders *MockReminderLister
	storage   *MockStorage
	scheduler *MockScheduler
	svc       TaskService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		tasks:     &MockTaskStore{},
		reminders: &MockReminderLister{},
		storage:   &MockStorage{},
		scheduler: &MockScheduler{},
	}
	svc, err := NewTaskService(f.tasks, f.reminders, f.storage, f.scheduler, time.Hour, nil)
	require.NoError(t, err)
	f.svc = svc
	t.Cleanup(func() {
		f.tasks.AssertExpectations(t)
		f.reminders.AssertExpectations(t)
		f.storage.AssertExpectations(t)
		f.scheduler.AssertExpectations(t)
	})
	return f
}

func strPtr(s string) *string { return &s }

func TestNewTaskService_NilDependencies(t *testing.T) {
	t.Parallel()

	tasks, reminders, storage, scheduler := &MockTaskStore{}, &MockReminderLister{}, &MockStorage{}, &MockScheduler{}

	_, err := NewTaskService(nil, reminders, storage, scheduler, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, nil, storage, scheduler, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, reminders, nil, scheduler, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, reminders, storage, nil, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, reminders, storage, scheduler, -time.Minute, nil)
	assert.Error(t, err)
}

func TestTaskService_CreateTask(t *testing.T) {
	t.Parallel()

	due := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	input := CreateTaskInput{
		Title:        "Book venue",
		Description:  "For the offsite",
		Status:       "backlog",
		DueDate:      due,
		EmailAddress: strPtr("planner@example.com"),
	}

	t.Run("stores task and schedules reminder one hour before due", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		f.storage.On("CreateLocation", mock.Anything).Return("tasks/0123abcd", nil)
		f.tasks.On("Create", mock.Anything, mock.MatchedBy(func(task *domain.Task) bool {
			return task.FilePath != nil && *task.FilePath == "tasks/0123abcd" && task.Status == "backlog"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Task).ID = 42
		}).Return(nil)
		f.scheduler.On("ScheduleAt", mock.Anything, due.Add(-time.Hour), domain.ReminderPayload{
			TaskID:       42,
			Title:        "Book venue",
			Status:       "backlog",
			DueDate:      due,
			Description:  "For the offsite",
			EmailAddress: "planner@example.com",
		}).Return(nil)

		task, err := f.svc.CreateTask(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, int64(42), task.ID)
	})

	t.Run("validation failure touches nothing", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		bad := input
		bad.Status = "Someday"
		_, err := f.svc.CreateTask(context.Background(), bad)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		f.storage.On("CreateLocation", mock.Anything).Return("tasks/x", nil)
		f.tasks.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
		f.storage.On("RemoveLocation", mock.Anything, "tasks/x").Return(nil)

		_, err := f.svc.CreateTask(context.Background(), input)
		var svcErr *TaskServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "create_task", svcErr.Operation)
		f.storage.AssertCalled(t, "RemoveLocation", mock.Anything, "tasks/x")
		f.scheduler.AssertNotCalled(t, "ScheduleAt", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure reports the save error when cleanup fails", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		saveErr := errors.New("db down")
		f.storage.On("CreateLocation", mock.Anything).Return("tasks/y", nil)
		f.tasks.On("Create", mock.Anything, mock.Anything).Return(saveErr)
		f.storage.On("RemoveLocation", mock.Anything, "tasks/y").Return(errors.New("permission denied"))

		_, err := f.svc.CreateTask(context.Background(), input)
		assert.ErrorIs(t, err, saveErr)
	})

	t.Run("scheduler failure returns the created task", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		cause := errors.New("reminders table unavailable")

		f.storage.On("CreateLocation", mock.Anything).Return("tasks/x", nil)
		f.tasks.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Task).ID = 7
		}).Return(nil)
		f.scheduler.On("ScheduleAt", mock.Anything, mock.Anything, mock.Anything).Return(cause)

		task, err := f.svc.CreateTask(context.Background(), input)
		assert.ErrorIs(t, err, ErrReminderNotScheduled)
		assert.ErrorIs(t, err, cause)
		require.NotNil(t, task)

		var partial *ReminderNotScheduledError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, int64(7), partial.Task.ID)
	})

	t.Run("past due date still schedules", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		past := input
		past.DueDate = time.Now().Add(-time.Hour)

		f.storage.On("CreateLocation", mock.Anything).Return("tasks/x", nil)
		f.tasks.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.scheduler.On("ScheduleAt", mock.Anything, mock.MatchedBy(func(fireAt time.Time) bool {
			return fireAt.Before(time.Now())
		}), mock.Anything).Return(nil)

		_, err := f.svc.CreateTask(context.Background(), past)
		assert.NoError(t, err)
	})
}

func TestTaskService_GetTask(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("GetByID", mock.Anything, int64(1)).Return(&domain.Task{ID: 1}, nil)

		task, err := f.svc.GetTask(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), task.ID)
	})

	t.Run("not found maps to service sentinel", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("GetByID", mock.Anything, int64(2)).Return(nil, store.ErrTaskNotFound)

		_, err := f.svc.GetTask(context.Background(), 2)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestTaskService_ListTasks(t *testing.T) {
	t.Parallel()

	t.Run("passes filter through", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		filter := store.TaskFilter{Statuses: []string{"done"}, Sort: store.SortAsc}
		f.tasks.On("List", mock.Anything, filter).Return([]*domain.Task{{ID: 1}, {ID: 2}}, nil)

		tasks, err := f.svc.ListTasks(context.Background(), filter)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("invalid filter is not wrapped", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("List", mock.Anything, mock.Anything).Return(nil, store.ErrInvalidFilter)

		_, err := f.svc.ListTasks(context.Background(), store.TaskFilter{})
		assert.ErrorIs(t, err, store.ErrInvalidFilter)
		var svcErr *TaskServiceError
		assert.False(t, errors.As(err, &svcErr))
	})
}

func TestTaskService_UpdateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		update    store.TaskUpdate
		wantField string
	}{
		{"blank title", store.TaskUpdate{Title: strPtr("  ")}, "title"},
		{"unknown status", store.TaskUpdate{Status: strPtr("Archived")}, "status"},
		{"zero due date", store.TaskUpdate{DueDate: &time.Time{}}, "due_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newServiceFixture(t)

			_, err := f.svc.UpdateTask(context.Background(), 1, tt.update)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}

	t.Run("applies update without touching reminders", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		update := store.TaskUpdate{Status: strPtr("in progress")}
		f.tasks.On("Update", mock.Anything, int64(3), update).
			Return(&domain.Task{ID: 3, Status: "in progress"}, nil)

		task, err := f.svc.UpdateTask(context.Background(), 3, update)
		require.NoError(t, err)
		assert.Equal(t, "in progress", task.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("Update", mock.Anything, int64(9), mock.Anything).Return(nil, store.ErrTaskNotFound)

		_, err := f.svc.UpdateTask(context.Background(), 9, store.TaskUpdate{Title: strPtr("x")})
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestTaskService_DeleteTask(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.tasks.On("Delete", mock.Anything, int64(5)).Return(&domain.Task{ID: 5, Title: "old"}, nil)
	f.tasks.On("Delete", mock.Anything, int64(6)).Return(nil, store.ErrTaskNotFound)

	task, err := f.svc.DeleteTask(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "old", task.Title)

	_, err = f.svc.DeleteTask(context.Background(), 6)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_AttachFile(t *testing.T) {
	t.Parallel()

	location := "tasks/0123abcd"

	t.Run("stores under the task location with a sanitized name", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		body := strings.NewReader("data")
		f.tasks.On("GetByID", mock.Anything, int64(1)).Return(&domain.Task{ID: 1, FilePath: &location}, nil)
		f.storage.On("Save", mock.Anything, location, "passwd", body).Return(location+"/passwd", nil)

		att, err := f.svc.AttachFile(context.Background(), 1, "../../etc/passwd", body)
		require.NoError(t, err)
		assert.Equal(t, "passwd", att.Name)
		assert.Equal(t, location+"/passwd", att.Path)
	})

	t.Run("invalid name rejected before lookup", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.AttachFile(context.Background(), 1, "..", strings.NewReader(""))
		assert.ErrorIs(t, err, filestore.ErrInvalidFilename)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("GetByID", mock.Anything, int64(2)).Return(nil, store.ErrTaskNotFound)

		_, err := f.svc.AttachFile(context.Background(), 2, "a.txt", strings.NewReader(""))
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("task without location", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("GetByID", mock.Anything, int64(3)).Return(&domain.Task{ID: 3}, nil)

		_, err := f.svc.AttachFile(context.Background(), 3, "a.txt", strings.NewReader(""))
		assert.ErrorIs(t, err, ErrNoStorageLocation)
	})

	t.Run("existing file", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.tasks.On("GetByID", mock.Anything, int64(4)).Return(&domain.Task{ID: 4, FilePath: &location}, nil)
		f.storage.On("Save", mock.Anything, location, "a.txt", mock.Anything).
			Return("", filestore.ErrFileExists)

		_, err := f.svc.AttachFile(context.Background(), 4, "a.txt", strings.NewReader(""))
		assert.ErrorIs(t, err, filestore.ErrFileExists)
	})
}

func TestTaskService_ListReminders(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.reminders.On("ListByTask", mock.Anything, int64(8)).
		Return([]*domain.Reminder{{State: domain.ReminderStateSent}}, nil)

	reminders, err := f.svc.ListReminders(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, domain.ReminderStateSent, reminders[0].State)
}

func TestNewTaskServiceError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewTaskServiceError("op", "msg", nil))
	assert.Equal(t, ErrTaskNotFound, NewTaskServiceError("op", "msg", store.ErrTaskNotFound))

	validation := domain.NewValidationError("title", "cannot be empty", domain.ErrEmptyContent)
	assert.Same(t, validation, NewTaskServiceError("op", "msg", validation))

	cause := errors.New("boom")
	err := NewTaskServiceError("op", "msg", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "task service op failed: msg: boom", err.Error())
}
