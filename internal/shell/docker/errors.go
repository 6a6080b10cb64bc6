package docker

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrConnectionFailed is returned when the engine cannot be reached.
	ErrConnectionFailed = errors.New("docker connection failed")

	// ErrCommandFailed is returned when a compose command exits non-zero.
	ErrCommandFailed = errors.New("compose command failed")

	// ErrExecFailed is returned when a compose command cannot be started.
	ErrExecFailed = errors.New("compose command could not be executed")
)

// DockerError wraps engine API errors with additional context.
type DockerError struct {
	Op      string // Operation that failed
	Entity  string // Entity type (image, engine)
	ID      string // Entity ID if applicable
	Message string
	Err     error
}

func (e *DockerError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// ErrMessage returns the engine's own failure text without the operation
// context.
func (e *DockerError) ErrMessage() string {
	return e.Message
}

// NewDockerError creates a new DockerError.
func NewDockerError(op, entity, id, message string, err error) *DockerError {
	return &DockerError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// ComposeError is returned when the compose CLI ran but exited non-zero.
// Err carries the command's standard error output.
type ComposeError struct {
	Op       string
	ExitCode int
	Out      string
	Err      string
}

func (e *ComposeError) Error() string {
	if e.Err != "" {
		return e.Err
	}
	return fmt.Sprintf("%s: exited with code %d", e.Op, e.ExitCode)
}

// ErrMessage returns the command's error output.
func (e *ComposeError) ErrMessage() string {
	return e.Err
}

func (e *ComposeError) Unwrap() error {
	return ErrCommandFailed
}

// ExecError is returned when the compose CLI could not be started at all,
// for example because the binary is missing.
type ExecError struct {
	Op    string
	Errno string
	Cause error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Errno)
}

// ErrnoMessage returns the system-level failure description.
func (e *ExecError) ErrnoMessage() string {
	return e.Errno
}

func (e *ExecError) Unwrap() []error {
	return []error{ErrExecFailed, e.Cause}
}
