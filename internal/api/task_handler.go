package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskr-api/internal/api/shared"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/platform/logger"
	"github.com/phrazzld/taskr-api/internal/service"
)

// Upload limits.
const (
	// DefaultMaxUploadBytes caps an upload request body when no limit is configured.
	DefaultMaxUploadBytes int64 = 32 << 20

	// uploadFormField is the multipart field carrying the file.
	uploadFormField = "file"

	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temporary files.
	multipartMemory int64 = 8 << 20
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService    service.TaskService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. A non-positive maxUploadBytes
// falls back to DefaultMaxUploadBytes.
func NewTaskHandler(taskService service.TaskService, maxUploadBytes int64, logger *slog.Logger) *TaskHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService:    taskService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "task_handler"),
	}
}

// respondWithServiceError maps err to a status and safe message. Mutating
// endpoints pass http.StatusBadRequest as notFoundStatus because an unknown
// id there is a client error rather than a missing resource.
func (h *TaskHandler) respondWithServiceError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
	notFoundStatus int,
) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNotFound && notFoundStatus != 0 {
		status = notFoundStatus
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
}

// GetTask handles GET /api/{version}/task/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err, 0)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /api/{version}/task
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		h.respondWithListError(w, r, err)
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), filter)
	if err != nil {
		if MapErrorToStatusCode(err) == http.StatusBadRequest {
			h.respondWithListError(w, r, err)
			return
		}
		h.respondWithServiceError(w, r, err, 0)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// respondWithListError writes the 400 listing shape: an empty task list
// alongside the error message.
func (h *TaskHandler) respondWithListError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("rejected task listing", "error", err)
	shared.RespondWithJSON(w, r, http.StatusBadRequest, TaskListResponse{
		Tasks: []TaskResponse{},
		Error: GetSafeErrorMessage(err),
	})
}

// CreateTask handles POST /api/{version}/task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if err := validateEmailAddress(req.EmailAddress); err != nil {
		h.respondWithServiceError(w, r, err, 0)
		return
	}

	dueDate, err := domain.ParseDueDate(req.DueDate)
	if err != nil {
		h.respondWithServiceError(w, r, err, 0)
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), service.CreateTaskInput{
		Title:        req.Title,
		Description:  *req.Description,
		Status:       req.Status,
		DueDate:      dueDate,
		EmailAddress: req.EmailAddress,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err, 0)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PUT /api/{version}/task/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	update, err := toTaskUpdate(req)
	if err != nil {
		h.respondWithServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), id, update)
	if err != nil {
		h.respondWithServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/{version}/task/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskService.DeleteTask(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UploadFile handles POST /api/{version}/task/{id}/file_upload
func (h *TaskHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
				fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadBytes), err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Expected a multipart form upload", err)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer func() { _ = file.Close() }()

	attachment, err := h.taskService.AttachFile(r.Context(), id, header.Filename, file)
	if err != nil {
		h.respondWithServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
		Message: "Successfully uploaded " + attachment.Name,
		File:    attachment.Path,
	})
}

// ListReminders handles GET /api/{version}/task/{id}/reminders
func (h *TaskHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	reminders, err := h.taskService.ListReminders(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err, 0)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, remindersToResponse(reminders))
}
