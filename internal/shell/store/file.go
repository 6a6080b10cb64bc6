package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// =============================================================================
// FileStore
// =============================================================================

// FileStore implements BlobStore and DirEnsurer on the local filesystem.
// Paths are used as given; callers pass absolute paths.
type FileStore struct {
	fileMode os.FileMode
	dirMode  os.FileMode
}

// NewFileStore creates a filesystem store.
func NewFileStore() *FileStore {
	return &FileStore{fileMode: 0o644, dirMode: 0o755}
}

// Exists reports whether a file exists at path.
func (s *FileStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, NewStoreError("Exists", path, err.Error(), ErrIO)
}

// Read returns the contents of the file at path.
func (s *FileStore) Read(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewStoreError("Read", path, "file not found", ErrNotFound)
		}
		return "", NewStoreError("Read", path, err.Error(), ErrIO)
	}
	return string(data), nil
}

// Write atomically replaces the file at path, creating parent directories.
func (s *FileStore) Write(ctx context.Context, path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return NewStoreError("Write", path, err.Error(), ErrIO)
	}
	if err := atomicwriter.WriteFile(path, []byte(data), s.fileMode); err != nil {
		return NewStoreError("Write", path, err.Error(), ErrIO)
	}
	return nil
}

// EnsureDir creates the directory and its parents if they do not exist.
func (s *FileStore) EnsureDir(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, s.dirMode); err != nil {
		return NewStoreError("EnsureDir", path, err.Error(), ErrIO)
	}
	return nil
}
