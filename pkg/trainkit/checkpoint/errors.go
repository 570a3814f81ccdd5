package checkpoint

import (
	"errors"
	"fmt"
)

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint file or directory doesn't exist,
	// or a directory holds no file matching the naming convention.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorrupt indicates a checkpoint file could not be decoded or is
	// missing required fields.
	ErrCorrupt = errors.New("checkpoint corrupt")

	// ErrInvalidInterval indicates a non-positive save interval.
	ErrInvalidInterval = errors.New("save interval must be positive")

	// ErrInvalidEpoch indicates a negative epoch number.
	ErrInvalidEpoch = errors.New("epoch must be non-negative")
)

// Error wraps errors from checkpoint operations.
type Error struct {
	// Op is the operation that failed ("new", "save", "load", "list", "delete").
	Op string
	// Path is the file or directory involved.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// corruptf builds an ErrCorrupt-wrapping error with detail.
func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
