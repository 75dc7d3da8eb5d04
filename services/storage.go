package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lastnext/maintenance-api/utils"
)

// Storage is a blob store addressed by key
type Storage interface {
	// Put stores body under key
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// URL returns a URL from which the object can be retrieved
	URL(ctx context.Context, key string) (string, error)

	// Delete removes the object; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// LocalStorage keeps files in a directory and serves them through the uploads route
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a local storage rooted at dir
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir returns the directory files are written to
func (l *LocalStorage) Dir() string {
	return l.dir
}

// Put writes body to the upload directory
func (l *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if _, err := utils.SaveFile(body, key, l.dir); err != nil {
		return err
	}
	return nil
}

// URL returns the API path for the stored file
func (l *LocalStorage) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return utils.GetFileURL(utils.LocalFileName(key)), nil
}

// Delete removes the file from the upload directory
func (l *LocalStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, utils.LocalFileName(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete local file: %w", err)
	}
	return nil
}
