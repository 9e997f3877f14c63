package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr-api/internal/config"
)

// Common storage errors.
var (
	// ErrInvalidFilename is returned when an upload name has no usable base name.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrFileExists is returned when a file with the same name is already
	// stored in the location.
	ErrFileExists = errors.New("file already exists")

	// ErrInvalidLocation is returned when a location was not produced by
	// the storage backend it is passed to.
	ErrInvalidLocation = errors.New("invalid storage location")
)

// Storage defines the operations the task service needs from a file backend.
type Storage interface {
	// CreateLocation allocates a new, unique location for a task's files
	// and returns the reference recorded as the task's file_path.
	CreateLocation(ctx context.Context) (string, error)

	// Save writes r as name inside location and returns the stored file's path.
	// name must already be sanitized. Returns ErrFileExists if the name is taken.
	Save(ctx context.Context, location, name string, r io.Reader) (string, error)

	// RemoveLocation discards a location that holds no files, such as one
	// allocated for a task that was never stored. Removing a missing
	// location is not an error.
	RemoveLocation(ctx context.Context, location string) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.Local.Root)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newToken returns a random 32 character hex token naming a location.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SanitizeFilename reduces a client supplied name to its base name.
// Directory components on either separator style are discarded, so
// "../../etc/passwd" becomes "passwd". Empty names, "." and "..", and
// names containing control characters are rejected with ErrInvalidFilename.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := strings.TrimSpace(path.Base(name))

	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	for _, r := range base {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidFilename)
		}
	}

	return base, nil
}
