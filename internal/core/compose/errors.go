package compose

import (
	"errors"
	"fmt"
)

// Manifest rejection reasons. ParseManifest wraps each one in a ParseError
// naming the offending location.
var (
	ErrEmptyInput           = errors.New("compose manifest is empty")
	ErrInvalidYAML          = errors.New("invalid YAML syntax")
	ErrNoServices           = errors.New("compose manifest must have a services section")
	ErrServiceNoImage       = errors.New("service must have an image")
	ErrServiceInvalidPort   = errors.New("invalid port configuration")
	ErrServiceInvalidVolume = errors.New("invalid volume configuration")
	ErrCircularDependency   = errors.New("circular dependency detected")
	ErrUnknownDependency    = errors.New("service depends on an undefined service")
)

// ParseError reports why a manifest was rejected. Path is a dotted location
// such as services.alice.ports[0], empty for document level problems.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(path, message string, reason error) *ParseError {
	return &ParseError{Path: path, Message: message, Err: reason}
}
