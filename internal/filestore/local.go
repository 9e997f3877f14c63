package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage keeps task files on the local filesystem, one directory per
// task under root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed and returns a backend rooted there.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage root cannot be empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{root: filepath.Clean(root)}, nil
}

var _ Storage = (*LocalStorage)(nil)

// CreateLocation creates a new token-named directory under root.
func (s *LocalStorage) CreateLocation(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	location := filepath.Join(s.root, newToken())
	if err := os.Mkdir(location, 0o755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}

	return location, nil
}

// RemoveLocation deletes an empty task directory. A directory that already
// holds files is left in place and reported as an error.
func (s *LocalStorage) RemoveLocation(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	location = filepath.Clean(location)
	if filepath.Dir(location) != s.root {
		return fmt.Errorf("%w: %s", ErrInvalidLocation, location)
	}

	if err := os.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove task directory: %w", err)
	}
	return nil
}

// Save writes r to name inside location with create-exclusive semantics.
func (s *LocalStorage) Save(ctx context.Context, location, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	location = filepath.Clean(location)
	if filepath.Dir(location) != s.root {
		return "", fmt.Errorf("%w: %s", ErrInvalidLocation, location)
	}

	if name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	if err := os.MkdirAll(location, 0o755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}

	fullPath := filepath.Join(location, name)
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrFileExists, name)
		}
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return fullPath, nil
}
