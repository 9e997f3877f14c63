package api

import (
	"github.com/go-chi/chi/v5"
	apiMiddleware "github.com/phrazzld/taskr-api/internal/api/middleware"
)

// RegisterTaskRoutes mounts the versioned task endpoints under
// /api/{version}. Every route passes the version gate first.
func RegisterTaskRoutes(r chi.Router, h *TaskHandler) {
	r.Route("/api/{"+apiMiddleware.VersionParam+"}", func(r chi.Router) {
		r.Use(apiMiddleware.RequireVersion)

		r.Get("/task", h.ListTasks)
		r.Post("/task", h.CreateTask)
		r.Get("/task/{id}", h.GetTask)
		r.Put("/task/{id}", h.UpdateTask)
		r.Delete("/task/{id}", h.DeleteTask)
		r.Post("/task/{id}/file_upload", h.UploadFile)
		r.Get("/task/{id}/reminders", h.ListReminders)
	})
}
