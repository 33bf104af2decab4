package output

import "github.com/abatilo/duedate/internal/task"

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatTask(t task.Task) string
	FormatTaskList(tasks []task.Task) string
	// FormatAdjustment reports a due date that was moved off a weekend.
	FormatAdjustment(requested, adjusted task.Date) string
	FormatError(err error) string
	FormatMessage(msg string) string
}

// New returns the JSON formatter when jsonOutput is set, otherwise the human one.
func New(jsonOutput bool) Formatter {
	if jsonOutput {
		return NewJSONFormatter()
	}
	return NewHumanFormatter()
}
