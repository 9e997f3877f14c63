package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskr-api/internal/api/shared"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/filestore"
	"github.com/phrazzld/taskr-api/internal/service"
	"github.com/phrazzld/taskr-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTaskService is a mock implementation of service.TaskService for testing
type MockTaskService struct {
	GetTaskFn       func(ctx context.Context, id int64) (*domain.Task, error)
	ListTasksFn     func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	CreateTaskFn    func(ctx context.Context, input service.CreateTaskInput) (*domain.Task, error)
	UpdateTaskFn    func(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error)
	DeleteTaskFn    func(ctx context.Context, id int64) (*domain.Task, error)
	AttachFileFn    func(ctx context.Context, id int64, filename string, r io.Reader) (*service.Attachment, error)
	ListRemindersFn func(ctx context.Context, id int64) ([]*domain.Reminder, error)

	calls int
}

// GetTask implements service.TaskService
func (m *MockTaskService) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	m.calls++
	if m.GetTaskFn != nil {
		return m.GetTaskFn(ctx, id)
	}
	return nil, service.ErrTaskNotFound
}

// ListTasks implements service.TaskService
func (m *MockTaskService) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	m.calls++
	if m.ListTasksFn != nil {
		return m.ListTasksFn(ctx, filter)
	}
	return nil, nil
}

// CreateTask implements service.TaskService
func (m *MockTaskService) CreateTask(ctx context.Context, input service.CreateTaskInput) (*domain.Task, error) {
	m.calls++
	if m.CreateTaskFn != nil {
		return m.CreateTaskFn(ctx, input)
	}
	return nil, errors.New("not configured")
}

// UpdateTask implements service.TaskService
func (m *MockTaskService) UpdateTask(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error) {
	m.calls++
	if m.UpdateTaskFn != nil {
		return m.UpdateTaskFn(ctx, id, update)
	}
	return nil, service.ErrTaskNotFound
}

// DeleteTask implements service.TaskService
func (m *MockTaskService) DeleteTask(ctx context.Context, id int64) (*domain.Task, error) {
	m.calls++
	if m.DeleteTaskFn != nil {
		return m.DeleteTaskFn(ctx, id)
	}
	return nil, service.ErrTaskNotFound
}

// AttachFile implements service.TaskService
func (m *MockTaskService) AttachFile(
	ctx context.Context,
	id int64,
	filename string,
	r io.Reader,
) (*service.Attachment, error) {
	m.calls++
	if m.AttachFileFn != nil {
		return m.AttachFileFn(ctx, id, filename, r)
	}
	return nil, service.ErrTaskNotFound
}

// ListReminders implements service.TaskService
func (m *MockTaskService) ListReminders(ctx context.Context, id int64) ([]*domain.Reminder, error) {
	m.calls++
	if m.ListRemindersFn != nil {
		return m.ListRemindersFn(ctx, id)
	}
	return nil, nil
}

var fixedDueDate = time.Date(2030, time.January, 1, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func sampleTask(id int64) *domain.Task {
	return &domain.Task{
		ID:           id,
		Title:        "write report",
		Description:  "quarterly numbers",
		Status:       "Pending",
		DueDate:      fixedDueDate,
		FilePath:     strPtr("tasks/0123456789abcdef0123456789abcdef"),
		EmailAddress: strPtr("owner@example.com"),
	}
}

// applyUpdate mirrors the store's update on an in-memory task.
func applyUpdate(task *domain.Task, u store.TaskUpdate) {
	if u.Title != nil {
		task.Title = *u.Title
	}
	if u.Description != nil {
		task.Description = *u.Description
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.DueDate != nil {
		task.DueDate = u.DueDate.UTC()
	}
	if u.EmailAddress != nil {
		if email := strings.TrimSpace(*u.EmailAddress); email == "" {
			task.EmailAddress = nil
		} else {
			task.EmailAddress = &email
		}
	}
}

func newTestRouter(svc service.TaskService, maxUpload int64) http.Handler {
	r := chi.NewRouter()
	RegisterTaskRoutes(r, NewTaskHandler(svc, maxUpload, nil))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			buf, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestTaskHandler_GetTask(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedErrMsg string
	}{
		{
			name: "existing task",
			path: "/api/1.0/task/3",
			setupMock: func(m *MockTaskService) {
				m.GetTaskFn = func(ctx context.Context, id int64) (*domain.Task, error) {
					return sampleTask(id), nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown task",
			path:           "/api/1.0/task/999",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusNotFound,
			expectedErrMsg: "Task not found",
		},
		{
			name:           "non-numeric id",
			path:           "/api/1.0/task/abc",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid task ID",
		},
		{
			name:           "unsupported version",
			path:           "/api/2.0/task/3",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockTaskService{}
			tc.setupMock(svc)

			rec := doJSON(t, newTestRouter(svc, 0), http.MethodGet, tc.path, nil)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedStatus != http.StatusOK {
				msg := decodeError(t, rec)
				if tc.expectedErrMsg != "" {
					assert.Equal(t, tc.expectedErrMsg, msg)
				}
				return
			}

			var resp TaskResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, int64(3), resp.ID)
			assert.Equal(t, "2030-01-01T10:00:00", resp.DueDate)
			assert.Equal(t, "Pending", resp.Status)
			require.NotNil(t, resp.FilePath)
		})
	}
}

func TestTaskHandler_VersionGateRunsBeforeService(t *testing.T) {
	svc := &MockTaskService{}
	router := newTestRouter(svc, 0)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := doJSON(t, router, method, "/api/0.9/task", map[string]string{"title": "t"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := doJSON(t, router, http.MethodDelete, "/api/1.1/task/1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, svc.calls)
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Run("passes filters to the service", func(t *testing.T) {
		var got store.TaskFilter
		svc := &MockTaskService{
			ListTasksFn: func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
				got = filter
				return []*domain.Task{sampleTask(1), sampleTask(2)}, nil
			},
		}

		rec := doJSON(t, newTestRouter(svc, 0), http.MethodGet,
			"/api/1.0/task?status=Pending,%20DONE&title=Write%20Report"+
				"&due_before_date=2030-02-01T00:00:00&due_after_date=2029-12-01&due_date_sort_by=DESC", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"pending", "done"}, got.Statuses)
		assert.Equal(t, "Write Report", got.Title)
		assert.Equal(t, store.SortDesc, got.Sort)
		require.NotNil(t, got.DueBefore)
		require.NotNil(t, got.DueAfter)
		assert.Equal(t, time.Date(2030, time.February, 1, 0, 0, 0, 0, time.UTC), *got.DueBefore)
		assert.Equal(t, time.Date(2029, time.December, 1, 0, 0, 0, 0, time.UTC), *got.DueAfter)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Tasks, 2)
		assert.Empty(t, resp.Error)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(&MockTaskService{}, 0), http.MethodGet, "/api/1.0/task", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"tasks": []}`, rec.Body.String())
	})

	badQueries := map[string]string{
		"unsupported sort": "/api/1.0/task?due_date_sort_by=sideways",
		"bad before date":  "/api/1.0/task?due_before_date=tomorrow",
		"bad after date":   "/api/1.0/task?due_after_date=13/45/2030",
	}
	for name, path := range badQueries {
		t.Run(name, func(t *testing.T) {
			svc := &MockTaskService{}
			rec := doJSON(t, newTestRouter(svc, 0), http.MethodGet, path, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp TaskListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotNil(t, resp.Tasks)
			assert.Empty(t, resp.Tasks)
			assert.NotEmpty(t, resp.Error)
			assert.Zero(t, svc.calls)
		})
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedErrMsg string
	}{
		{
			name: "successful creation",
			body: map[string]string{
				"title":       "t",
				"description": "d",
				"status":      "Pending",
				"due_date":    "2030-01-01T10:00:00",
			},
			setupMock: func(m *MockTaskService) {
				m.CreateTaskFn = func(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
					if in.Title != "t" || in.Description != "d" || !in.DueDate.Equal(fixedDueDate) {
						return nil, errors.New("unexpected input")
					}
					task := sampleTask(11)
					task.Title, task.Description, task.EmailAddress = in.Title, in.Description, nil
					return task, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing description",
			body:           map[string]string{"title": "t", "status": "Pending", "due_date": "2030-01-01T10:00:00"},
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid description: required field",
		},
		{
			name:           "malformed JSON",
			body:           `{"title": `,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid request format",
		},
		{
			name: "unparseable due date",
			body: map[string]string{
				"title": "t", "description": "d", "status": "Pending", "due_date": "next tuesday",
			},
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid email address",
			body: map[string]string{
				"title": "t", "description": "d", "status": "Pending",
				"due_date": "2030-01-01", "email_address": "not-an-address",
			},
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid email_address: must be a valid email address",
		},
		{
			name: "invalid status rejected by service",
			body: map[string]string{
				"title": "t", "description": "d", "status": "Someday", "due_date": "2030-01-01",
			},
			setupMock: func(m *MockTaskService) {
				m.CreateTaskFn = func(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
					return nil, domain.NewValidationError("status", "must be one of Blocked", domain.ErrInvalidStatus)
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid status: must be one of Blocked",
		},
		{
			name: "reminder scheduling failure",
			body: map[string]string{
				"title": "t", "description": "d", "status": "Pending", "due_date": "2030-01-01",
			},
			setupMock: func(m *MockTaskService) {
				m.CreateTaskFn = func(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
					task := sampleTask(9)
					return task, &service.ReminderNotScheduledError{Task: task, Err: errors.New("db unavailable")}
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedErrMsg: "Task 9 was created but its reminder could not be scheduled",
		},
		{
			name: "storage failure",
			body: map[string]string{
				"title": "t", "description": "d", "status": "Pending", "due_date": "2030-01-01",
			},
			setupMock: func(m *MockTaskService) {
				m.CreateTaskFn = func(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
					return nil, service.NewTaskServiceError("create_task", "failed", errors.New("disk full"))
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedErrMsg: "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockTaskService{}
			tc.setupMock(svc)

			rec := doJSON(t, newTestRouter(svc, 0), http.MethodPost, "/api/1.0/task", tc.body)

			require.Equal(t, tc.expectedStatus, rec.Code, rec.Body.String())
			if tc.expectedStatus != http.StatusOK {
				msg := decodeError(t, rec)
				if tc.expectedErrMsg != "" {
					assert.Equal(t, tc.expectedErrMsg, msg)
				}
				return
			}

			var resp TaskResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, int64(11), resp.ID)
			assert.Equal(t, "Pending", resp.Status)
			assert.NotNil(t, resp.FilePath)
			assert.Nil(t, resp.EmailAddress)
		})
	}
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	t.Run("applies provided fields only", func(t *testing.T) {
		var got store.TaskUpdate
		svc := &MockTaskService{
			UpdateTaskFn: func(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error) {
				got = update
				task := sampleTask(id)
				applyUpdate(task, update)
				return task, nil
			},
		}

		rec := doJSON(t, newTestRouter(svc, 0), http.MethodPut, "/api/1.0/task/4",
			`{"status": "Done", "due_date": "2031-06-01T08:30:00", "file_path": "/etc"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, got.Title)
		require.NotNil(t, got.Status)
		assert.Equal(t, "Done", *got.Status)
		require.NotNil(t, got.DueDate)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Done", resp.Status)
		assert.Equal(t, "2031-06-01T08:30:00", resp.DueDate)
		assert.Equal(t, "tasks/0123456789abcdef0123456789abcdef", *resp.FilePath)
	})

	t.Run("unknown task is a client error", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(&MockTaskService{}, 0), http.MethodPut, "/api/1.0/task/404",
			`{"title": "x"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Task not found", decodeError(t, rec))
	})

	t.Run("invalid due date", func(t *testing.T) {
		svc := &MockTaskService{}
		rec := doJSON(t, newTestRouter(svc, 0), http.MethodPut, "/api/1.0/task/4", `{"due_date": "soon"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, svc.calls)
	})
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	t.Run("returns the deleted task", func(t *testing.T) {
		svc := &MockTaskService{
			DeleteTaskFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				return sampleTask(id), nil
			},
		}

		rec := doJSON(t, newTestRouter(svc, 0), http.MethodDelete, "/api/1.0/task/5", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(5), resp.ID)
		assert.Equal(t, "write report", resp.Title)
	})

	t.Run("unknown task is a client error", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(&MockTaskService{}, 0), http.MethodDelete, "/api/1.0/task/5", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func newUploadRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestTaskHandler_UploadFile(t *testing.T) {
	tests := []struct {
		name           string
		field          string
		filename       string
		content        []byte
		maxUpload      int64
		attachErr      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "successful upload",
			field:          "file",
			filename:       "notes.txt",
			content:        []byte("hello"),
			expectedStatus: http.StatusOK,
			expectedBody: `{"message": "Successfully uploaded notes.txt",
				"file": "tasks/0123456789abcdef0123456789abcdef/notes.txt"}`,
		},
		{
			name:           "name collision",
			field:          "file",
			filename:       "notes.txt",
			content:        []byte("hello"),
			attachErr:      filestore.ErrFileExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid filename",
			field:          "file",
			filename:       "..",
			content:        []byte("hello"),
			attachErr:      filestore.ErrInvalidFilename,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown task",
			field:          "file",
			filename:       "notes.txt",
			content:        []byte("hello"),
			attachErr:      service.ErrTaskNotFound,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong form field",
			field:          "attachment",
			filename:       "notes.txt",
			content:        []byte("hello"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "body over the limit",
			field:          "file",
			filename:       "big.bin",
			content:        bytes.Repeat([]byte("x"), 4096),
			maxUpload:      1024,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockTaskService{
				AttachFileFn: func(ctx context.Context, id int64, filename string, r io.Reader) (*service.Attachment, error) {
					if tc.attachErr != nil {
						return nil, tc.attachErr
					}
					data, err := io.ReadAll(r)
					if err != nil {
						return nil, err
					}
					if string(data) != string(tc.content) {
						return nil, errors.New("content mismatch")
					}
					return &service.Attachment{
						Name: filename,
						Path: "tasks/0123456789abcdef0123456789abcdef/" + filename,
					}, nil
				},
			}

			req := newUploadRequest(t, "/api/1.0/task/2/file_upload", tc.field, tc.filename, tc.content)
			rec := httptest.NewRecorder()
			newTestRouter(svc, tc.maxUpload).ServeHTTP(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code, rec.Body.String())
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestTaskHandler_ListReminders(t *testing.T) {
	attempted := fixedDueDate.Add(-time.Hour)
	reminderID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	svc := &MockTaskService{
		ListRemindersFn: func(ctx context.Context, id int64) ([]*domain.Reminder, error) {
			return []*domain.Reminder{{
				ID:          reminderID,
				Payload:     domain.ReminderPayload{TaskID: id, EmailAddress: "owner@example.com"},
				FireAt:      fixedDueDate.Add(-time.Hour),
				State:       domain.ReminderStateSent,
				AttemptedAt: &attempted,
			}}, nil
		},
	}

	rec := doJSON(t, newTestRouter(svc, 0), http.MethodGet, "/api/1.0/task/8/reminders", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reminders": [{
		"id": "33333333-3333-3333-3333-333333333333",
		"task_id": 8,
		"fire_at": "2030-01-01T09:00:00Z",
		"state": "sent",
		"email_address": "owner@example.com",
		"attempted_at": "2030-01-01T09:00:00Z"
	}]}`, rec.Body.String())
}
