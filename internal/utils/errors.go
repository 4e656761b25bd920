package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrTaskNotFound returns an error for when a task id does not exist.
// A non-nil cause replaces the default message and stays in the chain.
func ErrTaskNotFound(id int, cause error) error {
	err := cause
	if err == nil {
		err = fmt.Errorf("task not found: %d", id)
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: "Use 'todotui list --all' to see task ids",
	}
}

// ErrGroupNotFound returns an error for when no task carries the group.
func ErrGroupNotFound(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("group not found: %s", name),
		Suggestion: "Use 'todotui groups' to see existing groups",
	}
}

// ErrInvalidDate returns an error for an invalid date string.
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date: %s", dateStr),
		Suggestion: "Use YYYY-MM-DD, YYYY-MM-DD HH:MM, today, tomorrow or +Nd/+Nw/+Nm",
	}
}

// ErrInvalidRepeat returns an error for a repeats value that cannot be parsed.
func ErrInvalidRepeat(repeat string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid repeat: %s", repeat),
		Suggestion: "Use never, daily, weekly, monthly, monthly N, yearly or weekdays like Mon,Thu",
	}
}

// ErrRepeatNeedsDue returns an error when a recurrence is set without a due date.
func ErrRepeatNeedsDue(cause error) error {
	if cause == nil {
		cause = errors.New("a repeating task needs a due date")
	}
	return &ErrorWithSuggestion{
		Err:        cause,
		Suggestion: "Add --due or clear the repeat with --repeat never",
	}
}

// ErrInvalidOption returns an error for an invalid enumerated value with valid options.
func ErrInvalidOption(field, value string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid %s: %s", field, value),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrStorageUnavailable returns an error when the task data cannot be read or written.
func ErrStorageUnavailable(path string, cause error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task storage %s: %w", path, cause),
		Suggestion: getSmartSuggestion(cause.Error()),
	}
}

// ErrMalformedTaskData returns an error when stored task data cannot be decoded.
func ErrMalformedTaskData(path string, cause error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("cannot load %s: %w", path, cause),
		Suggestion: "Fix or move the file aside; todotui will not overwrite data it cannot read",
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "permission denied") {
		return "Check the file permissions or set storage.path to a writable location"
	}

	if strings.Contains(lowerReason, "no space left") {
		return "Free some disk space; pending changes are kept until the next save"
	}

	if strings.Contains(lowerReason, "read-only file system") {
		return "The storage location is read-only. Set storage.path to a writable location"
	}

	if strings.Contains(lowerReason, "database is locked") {
		return "Another todotui process holds the database. Close it and try again"
	}

	return "Check storage.path in your config file ('todotui config path')"
}
