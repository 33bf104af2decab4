//nolint:revive // Package name intentionally matches stdlib for domain clarity
package errors

import (
	"fmt"
	"strings"
)

// TaskNotFoundError indicates the task ID doesn't match any stored task.
type TaskNotFoundError struct {
	ID int64
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %d", e.ID)
}

// ValidationError indicates a task field failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid task: %s %s", e.Field, e.Reason)
}

// MissingFieldsError indicates the add-task form was submitted without required fields.
type MissingFieldsError struct {
	Fields []string
}

func (e MissingFieldsError) Error() string {
	return "please fill in " + strings.Join(e.Fields, " and ")
}

// InvalidPriorityError indicates an invalid priority value.
type InvalidPriorityError struct {
	Value string
}

func (e InvalidPriorityError) Error() string {
	return fmt.Sprintf("invalid priority: %s (valid: Low, Medium, High)", e.Value)
}

// InvalidProgressError indicates an invalid progress value.
type InvalidProgressError struct {
	Value string
}

func (e InvalidProgressError) Error() string {
	return fmt.Sprintf(
		"invalid progress: %s (valid: Not Started, In Progress, On Hold, Completed, Done)",
		e.Value,
	)
}

// InvalidDateError indicates a date string that isn't YYYY-MM-DD.
type InvalidDateError struct {
	Value string
}

func (e InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date format %q: use YYYY-MM-DD", e.Value)
}

// UnsupportedOperationError indicates an operation the task store refuses outright.
type UnsupportedOperationError struct {
	Op string
}

func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported; only due date updates are allowed", e.Op)
}

// NotEditingError indicates an edit action was issued while no row is being edited.
type NotEditingError struct{}

func (e NotEditingError) Error() string {
	return "no task is being edited"
}

// StaleResponseError indicates a save response arrived after its edit was cancelled or replaced.
type StaleResponseError struct {
	ID int64
}

func (e StaleResponseError) Error() string {
	return fmt.Sprintf("discarded save response for task %d: edit is no longer active", e.ID)
}

// SaveInProgressError indicates Save was called while an earlier save of the same edit was still pending.
type SaveInProgressError struct {
	ID int64
}

func (e SaveInProgressError) Error() string {
	return fmt.Sprintf("task %d is already being saved", e.ID)
}

// APIError is a non-2xx response from the task API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// TransportError indicates the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("request failed: %s: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// AlreadyInitializedError indicates the task file already exists.
type AlreadyInitializedError struct {
	Path string
}

func (e AlreadyInitializedError) Error() string {
	return fmt.Sprintf("task store already initialized at %s", e.Path)
}
