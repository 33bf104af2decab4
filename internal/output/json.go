package output

import (
	"encoding/json"

	"github.com/abatilo/duedate/internal/task"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// FormatTask formats a single task as JSON.
func (f *JSONFormatter) FormatTask(t task.Task) string {
	return marshalJSON(t)
}

// FormatTaskList formats a list of tasks as JSON. An empty list is "[]".
func (f *JSONFormatter) FormatTaskList(tasks []task.Task) string {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return marshalJSON(tasks)
}

// adjustmentJSON is the JSON representation of a weekend adjustment.
type adjustmentJSON struct {
	Requested task.Date `json:"requested"`
	Adjusted  task.Date `json:"adjusted"`
	Moved     bool      `json:"moved"`
}

// FormatAdjustment formats a weekend adjustment as JSON.
func (f *JSONFormatter) FormatAdjustment(requested, adjusted task.Date) string {
	return marshalJSON(adjustmentJSON{
		Requested: requested,
		Adjusted:  adjusted,
		Moved:     !requested.Equal(adjusted),
	})
}

// errorJSON is the JSON representation of an error.
type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}

// messageJSON is the JSON representation of a message.
type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}
