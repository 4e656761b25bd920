package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes shared by every layer. Concrete errors wrap one of these so
// callers can classify them with errors.Is.
var (
	ErrNotFound   = errors.New("task not found")
	ErrValidation = errors.New("invalid task")
	ErrFormat     = errors.New("malformed task data")
	ErrIO         = errors.New("task storage unavailable")
)

// NotFoundError reports an operation on a task id that does not exist.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a draft that violates a task invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FormatErrorf wraps a decoding failure as ErrFormat.
func FormatErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w", ErrFormat, fmt.Errorf(format, args...))
}

// IOErrorf wraps a storage failure as ErrIO.
func IOErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w", ErrIO, fmt.Errorf(format, args...))
}

// Validate checks the draft against the task invariants: a non-blank name,
// non-blank group and url when present, and a due date whenever a
// recurrence rule is set.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if d.Group != nil && strings.TrimSpace(*d.Group) == "" {
		return &ValidationError{Field: "group", Reason: "must not be empty when set"}
	}
	if d.URL != nil && strings.TrimSpace(*d.URL) == "" {
		return &ValidationError{Field: "url", Reason: "must not be empty when set"}
	}
	if d.Recurrence != nil {
		if d.Due == nil {
			return &ValidationError{Field: "recurrence", Reason: "a repeating task needs a due date"}
		}
		if err := d.Recurrence.Validate(); err != nil {
			return &ValidationError{Field: "recurrence", Reason: err.Error()}
		}
	}
	return nil
}
