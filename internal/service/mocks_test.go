package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore mocks the store.TaskStore interface
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Task), args.Error(1)
}

func (m *MockTaskStore) Update(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) Delete(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// MockReminderLister mocks the ReminderLister interface
type MockReminderLister struct {
	mock.Mock
}

func (m *MockReminderLister) ListByTask(ctx context.Context, taskID int64) ([]*domain.Reminder, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reminder), args.Error(1)
}

// MockStorage mocks the filestore.Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateLocation(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Save(ctx context.Context, location, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, location, name, r)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) RemoveLocation(ctx context.Context, location string) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

// MockScheduler mocks the reminder.Scheduler interface
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleAt(ctx context.Context, fireAt time.Time, payload domain.ReminderPayload) error {
	args := m.Called(ctx, fireAt, payload)
	return args.Error(0)
}
