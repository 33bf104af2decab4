package task

// Draft is an unsaved copy of a task held by the editor.
// Every setter returns a new Draft; a Draft is never modified in place.
type Draft struct {
	task Task
}

// NewDraft returns an empty add-task form with the default priority and progress.
func NewDraft() Draft {
	return Draft{task: Task{}.WithDefaults()}
}

// DraftOf starts a draft from an existing task.
func DraftOf(t Task) Draft {
	return Draft{task: t}
}

// Task returns the task the draft would save.
func (d Draft) Task() Task {
	return d.task
}

// ID returns the ID of the task being edited, or zero for a new task.
func (d Draft) ID() int64 {
	return d.task.ID
}

func (d Draft) WithName(name string) Draft {
	d.task.Name = name
	return d
}

func (d Draft) WithStartDate(date Date) Draft {
	d.task.StartDate = date
	return d
}

func (d Draft) WithDueDate(date Date) Draft {
	d.task.DueDate = date
	return d
}

func (d Draft) WithSection(section string) Draft {
	d.task.Section = section
	return d
}

func (d Draft) WithAssignee(assignee string) Draft {
	d.task.Assignee = assignee
	return d
}

func (d Draft) WithPriority(p Priority) Draft {
	d.task.Priority = p
	return d
}

func (d Draft) WithProgress(p Progress) Draft {
	d.task.Progress = p
	return d
}

// PreviewDueDate shows the due date the store will persist for this draft.
func (d Draft) PreviewDueDate() Date {
	return AdjustWeekend(d.task.DueDate)
}
