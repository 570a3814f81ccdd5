package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for recording.
var (
	// ErrUnknownMetricType is returned when an item's Type is not supported.
	ErrUnknownMetricType = errors.New("unknown metric type")

	// ErrStepMismatch is returned when the sub-tags of a grouped scalars item
	// do not agree on the next step.
	ErrStepMismatch = errors.New("step mismatch for grouped scalars")

	// ErrInvalidPayload is returned when an item's data does not match its Type.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidStep is returned for a negative explicit step.
	ErrInvalidStep = errors.New("invalid step")

	// ErrRecorderClosed is returned when recording after Close.
	ErrRecorderClosed = errors.New("recorder is closed")

	// ErrSinkClosed is returned by sinks used after Close.
	ErrSinkClosed = errors.New("sink is closed")
)

// RecordError reports the entry that stopped a record call.
type RecordError struct {
	Tag  string
	Type Type
	Err  error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record %q (%s): %v", e.Tag, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// StepMismatchError describes the conflicting steps of a grouped scalars
// item recorded without an explicit step.
type StepMismatchError struct {
	Tag string

	// Steps holds the next step of every sub-tag already known.
	Steps map[string]int

	// Unknown lists sub-tags not seen before for this tag.
	Unknown []string
}

// Error implements the error interface.
func (e *StepMismatchError) Error() string {
	known := make([]string, 0, len(e.Steps))
	for sub, step := range e.Steps {
		known = append(known, fmt.Sprintf("%s=%d", sub, step))
	}
	sort.Strings(known)

	msg := fmt.Sprintf("%v: tag %q has next steps [%s]", ErrStepMismatch, e.Tag, strings.Join(known, " "))
	if len(e.Unknown) > 0 {
		msg += fmt.Sprintf(" and new sub-tags [%s]", strings.Join(e.Unknown, " "))
	}
	return msg
}

// Is reports whether target is ErrStepMismatch.
func (e *StepMismatchError) Is(target error) bool {
	return target == ErrStepMismatch
}

// payloadError wraps ErrInvalidPayload with detail.
func payloadError(t Type, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidPayload, t, fmt.Sprintf(format, args...))
}
