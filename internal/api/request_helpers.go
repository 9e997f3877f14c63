package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskr-api/internal/api/shared"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/store"
)

// List query parameters.
const (
	queryStatus        = "status"
	queryTitle         = "title"
	queryDueBeforeDate = "due_before_date"
	queryDueAfterDate  = "due_after_date"
	queryDueDateSortBy = "due_date_sort_by"
)

// getPathTaskID extracts a positive task id from the URL path.
func getPathTaskID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrInvalidID)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "must be a positive integer", domain.ErrInvalidID)
	}
	return id, nil
}

// parseTaskFilter reads the list query parameters into a store.TaskFilter.
// Every parameter is optional; malformed values are validation errors.
func parseTaskFilter(r *http.Request) (store.TaskFilter, error) {
	q := r.URL.Query()

	filter := store.TaskFilter{
		Statuses: domain.ParseStatusFilter(q.Get(queryStatus)),
		Title:    q.Get(queryTitle),
	}

	if raw := q.Get(queryDueBeforeDate); raw != "" {
		before, err := domain.ParseDueDate(raw)
		if err != nil {
			return store.TaskFilter{}, domain.NewValidationError(queryDueBeforeDate,
				"must be an ISO-8601 timestamp", domain.ErrInvalidDueDate)
		}
		filter.DueBefore = &before
	}

	if raw := q.Get(queryDueAfterDate); raw != "" {
		after, err := domain.ParseDueDate(raw)
		if err != nil {
			return store.TaskFilter{}, domain.NewValidationError(queryDueAfterDate,
				"must be an ISO-8601 timestamp", domain.ErrInvalidDueDate)
		}
		filter.DueAfter = &after
	}

	sort, err := store.ParseSortDirection(q.Get(queryDueDateSortBy))
	if err != nil {
		return store.TaskFilter{}, domain.NewValidationError(queryDueDateSortBy,
			"must be asc or desc", store.ErrInvalidFilter)
	}
	filter.Sort = sort

	return filter, nil
}

// validateEmailAddress accepts a nil or blank address and otherwise requires
// a syntactically valid one.
func validateEmailAddress(email *string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	if err := shared.ValidateVar(strings.TrimSpace(*email), "email"); err != nil {
		return domain.NewValidationError("email_address", "must be a valid email address", domain.ErrInvalidEmail)
	}
	return nil
}

// toTaskUpdate converts an update request into a store.TaskUpdate,
// parsing the due date when present.
func toTaskUpdate(req UpdateTaskRequest) (store.TaskUpdate, error) {
	update := store.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		EmailAddress: req.EmailAddress,
	}

	if err := validateEmailAddress(req.EmailAddress); err != nil {
		return store.TaskUpdate{}, err
	}

	if req.DueDate != nil {
		due, err := domain.ParseDueDate(*req.DueDate)
		if err != nil {
			return store.TaskUpdate{}, err
		}
		update.DueDate = &due
	}

	return update, nil
}
