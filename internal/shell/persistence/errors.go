package persistence

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrCorruptCollection is returned when the collection file cannot be decoded.
	ErrCorruptCollection = errors.New("network collection is corrupt")

	// ErrMigration is returned when a stored collection cannot be upgraded.
	ErrMigration = errors.New("network collection migration failed")
)

// PersistenceError wraps errors with the operation and blob path.
type PersistenceError struct {
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func newError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Message: err.Error(), Err: err}
}
