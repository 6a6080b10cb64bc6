package store

import (
	"context"
	"fmt"
)

// =============================================================================
// Store Interfaces
// =============================================================================

// BlobStore reads and writes whole text blobs addressed by path.
// Write replaces the blob in one step; readers never see a partial write.
type BlobStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, data string) error
}

// DirEnsurer creates directories that must exist before containers start.
type DirEnsurer interface {
	EnsureDir(ctx context.Context, path string) error
}

// Store driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the blob store for a driver. The returned close function
// releases any resources held by the store.
func Open(driver, dsn string) (BlobStore, func() error, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(), func() error { return nil }, nil
	case DriverSQLite:
		s, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, NewStoreError("Open", "", fmt.Sprintf("driver %q", driver), ErrUnknownDriver)
	}
}
