package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/abatilo/duedate/internal/task"
)

// HumanFormatter formats output for human-readable terminal display.
// Colours are dropped automatically when stdout is not a terminal.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatTask formats a single task for display.
func (f *HumanFormatter) FormatTask(t task.Task) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%d] %s\n", t.ID, t.Name)
	fmt.Fprintf(&sb, "  Due:      %s\n", t.DueDate)
	if !t.StartDate.IsZero() {
		fmt.Fprintf(&sb, "  Start:    %s\n", t.StartDate)
	}
	fmt.Fprintf(&sb, "  Priority: %s\n", f.priorityBadge(t.Priority))
	fmt.Fprintf(&sb, "  Progress: %s\n", f.progressBadge(t.Progress))
	if t.Section != "" {
		fmt.Fprintf(&sb, "  Section:  %s\n", t.Section)
	}
	if t.Assignee != "" {
		fmt.Fprintf(&sb, "  Assignee: %s\n", t.Assignee)
	}
	if !t.LastModified.IsZero() {
		fmt.Fprintf(&sb, "  Modified: %s\n", t.LastModified)
	}

	return sb.String()
}

// FormatTaskList formats a list of tasks for display.
func (f *HumanFormatter) FormatTaskList(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "No tasks found.\n"
	}

	var sb strings.Builder
	for _, t := range tasks {
		sb.WriteString(f.formatTaskLine(t))
	}
	return sb.String()
}

// formatTaskLine formats a single task as a compact one-liner.
func (f *HumanFormatter) formatTaskLine(t task.Task) string {
	extra := ""
	if t.Assignee != "" {
		extra += " @" + t.Assignee
	}
	if t.Section != "" {
		extra += " (" + t.Section + ")"
	}
	return fmt.Sprintf("%s %s [%d] %s  due %s%s\n",
		f.progressIcon(t.Progress), f.priorityBadge(t.Priority), t.ID, t.Name, t.DueDate, extra)
}

func (f *HumanFormatter) progressIcon(p task.Progress) string {
	switch p {
	case task.ProgressNotStarted:
		return "[ ]"
	case task.ProgressInProgress:
		return "[*]"
	case task.ProgressOnHold:
		return "[~]"
	case task.ProgressCompleted, task.ProgressDone:
		return "[X]"
	default:
		return "[?]"
	}
}

func (f *HumanFormatter) priorityBadge(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return color.RedString("%-6s", p)
	case task.PriorityMedium:
		return color.YellowString("%-6s", p)
	case task.PriorityLow:
		return color.GreenString("%-6s", p)
	default:
		return fmt.Sprintf("%-6s", p)
	}
}

func (f *HumanFormatter) progressBadge(p task.Progress) string {
	switch p {
	case task.ProgressInProgress:
		return color.CyanString("%s", p)
	case task.ProgressOnHold:
		return color.MagentaString("%s", p)
	case task.ProgressCompleted, task.ProgressDone:
		return color.GreenString("%s", p)
	default:
		return string(p)
	}
}

// FormatAdjustment formats the notice shown when a weekend due date is moved.
func (f *HumanFormatter) FormatAdjustment(requested, adjusted task.Date) string {
	if requested.Equal(adjusted) {
		return fmt.Sprintf("%s (%s) is a weekday; no adjustment needed\n", adjusted, adjusted.Weekday())
	}
	return fmt.Sprintf("%s falls on a %s; due date moved to Monday %s\n",
		requested, requested.Weekday(), color.New(color.Bold).Sprint(adjusted))
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return color.RedString("Error:") + " " + err.Error() + "\n"
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}
