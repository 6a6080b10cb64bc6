package lifecycle

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// UnknownErrorMessage is surfaced when a failure carries no usable message.
const UnknownErrorMessage = "an unknown error occurred"

// ErrCommandFailed is matched by every error returned from a lifecycle
// operation.
var ErrCommandFailed = errors.New("lifecycle command failed")

// CommandError is the single failure kind surfaced by lifecycle operations.
// Message is the normalized failure text; Err keeps the original cause.
type CommandError struct {
	Op      string
	Network int
	Node    string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	return e.Message
}

func (e *CommandError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommandFailed}
	}
	return []error{ErrCommandFailed, e.Err}
}

// Describe returns the message with the operation context attached, for logs.
func (e *CommandError) Describe() string {
	if e.Node != "" {
		return fmt.Sprintf("%s network %d node %s: %s", e.Op, e.Network, e.Node, e.Message)
	}
	return fmt.Sprintf("%s network %d: %s", e.Op, e.Network, e.Message)
}

// QueryError is a failed engine or compose query. Its text is the
// normalized message of the underlying failure.
type QueryError struct {
	Op      string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError wraps err with its normalized message.
func NewQueryError(op string, err error) *QueryError {
	return &QueryError{Op: op, Message: NormalizeMessage(err), Err: err}
}

// errMessager is implemented by failures from a command that ran and
// reported an error on its own output.
type errMessager interface {
	ErrMessage() string
}

// errnoMessager is implemented by failures from a command that could not be
// run at all.
type errnoMessager interface {
	ErrnoMessage() string
}

// NormalizeMessage extracts the message a caller should see from any failure.
// The command's own error output wins, then a system-level message, then the
// error text itself, then a generic fallback.
func NormalizeMessage(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}

	var em errMessager
	if errors.As(err, &em) {
		if msg := em.ErrMessage(); msg != "" {
			return msg
		}
	}

	var en errnoMessager
	if errors.As(err, &en) {
		if msg := en.ErrnoMessage(); msg != "" {
			return msg
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}

// NormalizeError wraps err as a CommandError with a normalized message.
// A nil err yields nil.
func NormalizeError(op string, network int, node string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{
		Op:      op,
		Network: network,
		Node:    node,
		Message: NormalizeMessage(err),
		Err:     err,
	}
}
