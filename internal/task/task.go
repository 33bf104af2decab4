package task

import (
	"strings"

	dderrors "github.com/abatilo/duedate/internal/errors"
)

// Priority represents the importance level of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Progress represents how far along a task is.
type Progress string

const (
	ProgressNotStarted Progress = "Not Started"
	ProgressInProgress Progress = "In Progress"
	ProgressOnHold     Progress = "On Hold"
	ProgressCompleted  Progress = "Completed"
	ProgressDone       Progress = "Done"
)

// Task represents a row in the project task list.
//
// ID is zero until the store assigns one. CreatedAt and LastModified are
// bookkeeping set by the store and ignored on input.
type Task struct {
	ID           int64    `json:"id,omitempty"`
	Name         string   `json:"name"`
	StartDate    Date     `json:"start_date"`
	DueDate      Date     `json:"due_date"`
	Section      string   `json:"section"`
	Assignee     string   `json:"assignee"`
	Priority     Priority `json:"priority"`
	Progress     Progress `json:"progress"`
	CreatedAt    Date     `json:"created_at"`
	LastModified Date     `json:"last_modified"`
}

// IsValidPriority checks if a priority string is valid.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// IsValidProgress checks if a progress string is valid.
func IsValidProgress(p Progress) bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressOnHold, ProgressCompleted, ProgressDone:
		return true
	default:
		return false
	}
}

// WithDefaults fills an empty priority and progress with Medium and Not Started.
func (t Task) WithDefaults() Task {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Progress == "" {
		t.Progress = ProgressNotStarted
	}
	return t
}

// Validate reports the first field that would stop the task from being stored.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return dderrors.ValidationError{Field: "name", Reason: "is required"}
	}
	if t.DueDate.IsZero() {
		return dderrors.ValidationError{Field: "due_date", Reason: "is required"}
	}
	if !IsValidPriority(t.Priority) {
		return dderrors.InvalidPriorityError{Value: string(t.Priority)}
	}
	if !IsValidProgress(t.Progress) {
		return dderrors.InvalidProgressError{Value: string(t.Progress)}
	}
	return nil
}

// Merge applies the fields set in update on top of t. Empty strings and
// zero dates in update mean the field was not sent and leave t unchanged.
// ID, CreatedAt and LastModified are kept from t.
func (t Task) Merge(update Task) Task {
	if strings.TrimSpace(update.Name) != "" {
		t.Name = update.Name
	}
	if !update.StartDate.IsZero() {
		t.StartDate = update.StartDate
	}
	if !update.DueDate.IsZero() {
		t.DueDate = update.DueDate
	}
	if update.Section != "" {
		t.Section = update.Section
	}
	if update.Assignee != "" {
		t.Assignee = update.Assignee
	}
	if update.Priority != "" {
		t.Priority = update.Priority
	}
	if update.Progress != "" {
		t.Progress = update.Progress
	}
	return t
}

// ValidateUpdate checks update against the stored task it will be merged
// into. Priority and progress are only checked when update changes them, so
// rows holding values outside the enums can still be saved unchanged.
func (t Task) ValidateUpdate(update Task) error {
	if update.Priority != "" && update.Priority != t.Priority && !IsValidPriority(update.Priority) {
		return dderrors.InvalidPriorityError{Value: string(update.Priority)}
	}
	if update.Progress != "" && update.Progress != t.Progress && !IsValidProgress(update.Progress) {
		return dderrors.InvalidProgressError{Value: string(update.Progress)}
	}
	if t.DueDate.IsZero() && update.DueDate.IsZero() {
		return dderrors.ValidationError{Field: "due_date", Reason: "is required"}
	}
	return nil
}
