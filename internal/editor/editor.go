// Package editor holds the client-side editing state of the task list: which
// row is being edited, its draft, the add-task form and the last error.
package editor

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/task"
)

// Store is the remote task store the editor reads from and saves to.
type Store interface {
	List(ctx context.Context) ([]task.Task, error)
	Upsert(ctx context.Context, t task.Task) (task.Task, error)
}

// session is one Viewing → Editing → Viewing cycle of a single row.
type session struct {
	gen    uint64
	draft  task.Draft
	saving bool
}

// Editor is safe for concurrent use. Its lock is never held while the store
// is called, so Cancel or BeginEdit can run while a save is in flight; the
// generation check in Save then drops the late response.
type Editor struct {
	store  Store
	logger *zap.Logger

	mu      sync.Mutex
	tasks   []task.Task
	editing *session
	gen     uint64
	newTask task.Draft
	err     error
}

func New(store Store, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{store: store, logger: logger, newTask: task.NewDraft()}
}

// Load replaces the displayed list with the store's.
func (e *Editor) Load(ctx context.Context) error {
	tasks, err := e.store.List(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		return err
	}
	e.tasks = tasks
	e.err = nil
	return nil
}

// Tasks returns a copy of the displayed list.
func (e *Editor) Tasks() []task.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.tasks)
}

// Err returns the error currently shown to the user, if any.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Editor) ClearErr() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = nil
}

// IsEditing reports whether the row with id is in the Editing state.
func (e *Editor) IsEditing(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing != nil && e.editing.draft.ID() == id
}

// Editing returns the current draft, if a row is being edited.
func (e *Editor) Editing() (task.Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return task.Draft{}, false
	}
	return e.editing.draft, true
}

// BeginEdit moves the row with id to Editing. Any other row being edited
// returns to Viewing and its draft is discarded.
func (e *Editor) BeginEdit(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := slices.IndexFunc(e.tasks, func(t task.Task) bool { return t.ID == id })
	if i < 0 {
		return dderrors.TaskNotFoundError{ID: id}
	}
	e.gen++
	e.editing = &session{gen: e.gen, draft: task.DraftOf(e.tasks[i])}
	e.err = nil
	return nil
}

// SetDueDate replaces the draft with one carrying the new due date.
func (e *Editor) SetDueDate(d task.Date) error {
	return e.UpdateDraft(func(draft task.Draft) task.Draft { return draft.WithDueDate(d) })
}

// UpdateDraft replaces the draft with fn's result.
func (e *Editor) UpdateDraft(fn func(task.Draft) task.Draft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return dderrors.NotEditingError{}
	}
	e.editing = &session{gen: e.editing.gen, draft: fn(e.editing.draft), saving: e.editing.saving}
	return nil
}

// PreviewDueDate returns the due date the store would persist for the draft.
func (e *Editor) PreviewDueDate() (task.Date, bool) {
	draft, ok := e.Editing()
	if !ok {
		return task.Date{}, false
	}
	return draft.PreviewDueDate(), true
}

// Cancel discards the draft and returns the row to Viewing.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = nil
}

// Save sends the draft to the store. On success the list entry is replaced by
// the stored task and the row returns to Viewing. On failure the row stays in
// Editing with its draft and the error is surfaced through Err. A response for
// an edit that was cancelled or replaced meanwhile is dropped with a
// StaleResponseError. Only one save per edit may be pending; a second call
// returns SaveInProgressError without contacting the store.
func (e *Editor) Save(ctx context.Context) (task.Task, error) {
	e.mu.Lock()
	if e.editing == nil {
		e.mu.Unlock()
		return task.Task{}, dderrors.NotEditingError{}
	}
	if e.editing.saving {
		id := e.editing.draft.ID()
		e.mu.Unlock()
		return task.Task{}, dderrors.SaveInProgressError{ID: id}
	}
	e.editing.saving = true
	sess := *e.editing
	e.mu.Unlock()

	saved, err := e.store.Upsert(ctx, sess.draft.Task())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil || e.editing.gen != sess.gen {
		e.logger.Debug("dropping stale save response", zap.Int64("id", sess.draft.ID()), zap.Error(err))
		return task.Task{}, dderrors.StaleResponseError{ID: sess.draft.ID()}
	}
	e.editing.saving = false
	if err != nil {
		e.err = err
		return task.Task{}, err
	}

	if i := slices.IndexFunc(e.tasks, func(t task.Task) bool { return t.ID == saved.ID }); i >= 0 {
		e.tasks[i] = saved
	}
	e.editing = nil
	e.err = nil
	return saved, nil
}

// NewTask returns the add-task form.
func (e *Editor) NewTask() task.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newTask
}

// UpdateNewTask replaces the add-task form with fn's result.
func (e *Editor) UpdateNewTask(fn func(task.Draft) task.Draft) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.newTask = fn(e.newTask)
}

// AddTask submits the add-task form. Name and due date are required before
// anything is sent. On success the stored task is appended and the form is
// reset; on failure nothing is appended and the form is kept.
func (e *Editor) AddTask(ctx context.Context) (task.Task, error) {
	e.mu.Lock()
	t := e.newTask.Task()
	var missing []string
	if strings.TrimSpace(t.Name) == "" {
		missing = append(missing, "task name")
	}
	if t.DueDate.IsZero() {
		missing = append(missing, "due date")
	}
	if len(missing) > 0 {
		err := dderrors.MissingFieldsError{Fields: missing}
		e.err = err
		e.mu.Unlock()
		return task.Task{}, err
	}
	e.mu.Unlock()

	saved, err := e.store.Upsert(ctx, t)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		return task.Task{}, err
	}
	e.tasks = append(e.tasks, saved)
	e.newTask = task.NewDraft()
	e.err = nil
	return saved, nil
}

// Delete always fails without contacting the store.
func (e *Editor) Delete(_ context.Context, id int64) error {
	err := dderrors.UnsupportedOperationError{Op: "deleting tasks"}
	e.logger.Debug("rejected task delete", zap.Int64("id", id))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
	return err
}
