package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskr-api/internal/api/shared"
)

// SupportedAPIVersion is the only value accepted in the {version} path segment.
const SupportedAPIVersion = "1.0"

// VersionParam is the chi URL parameter holding the API version.
const VersionParam = "version"

// RequireVersion rejects requests whose {version} path segment is not
// SupportedAPIVersion with 400 before any handler runs.
func RequireVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if version := chi.URLParam(r, VersionParam); version != SupportedAPIVersion {
			shared.RespondWithError(w, r, http.StatusBadRequest,
				"Unsupported API version, expected "+SupportedAPIVersion)
			return
		}
		next.ServeHTTP(w, r)
	})
}
