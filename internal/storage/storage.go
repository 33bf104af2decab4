package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/task"
)

const (
	DriverCSV    = "csv"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Backend persists tasks. It stores what it is given; validation and the
// weekend rule are applied by Store before a Backend ever sees a task.
type Backend interface {
	// Load returns all tasks in store order.
	Load(ctx context.Context) ([]task.Task, error)
	// Insert stores a new task, assigning it an unused ID.
	Insert(ctx context.Context, t task.Task) (task.Task, error)
	// Update replaces the task with the given ID by apply(existing), holding
	// whatever lock the backend uses so no other write lands in between.
	// Unknown IDs yield TaskNotFoundError and errors from apply abort the write.
	Update(ctx context.Context, id int64, apply UpdateFunc) (task.Task, error)
	Close() error
}

// UpdateFunc computes the task to store from the one currently stored.
type UpdateFunc func(existing task.Task) (task.Task, error)

// Options selects and configures a Backend.
type Options struct {
	Driver   string
	CSVPath  string
	MySQLDSN string
}

// Store is the task store: it owns the task list, assigns IDs through its
// backend and applies the weekend rule on every write.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore wraps a backend.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger, now: time.Now}
}

// Open creates the backend named by opts.Driver and wraps it in a Store.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		backend Backend
		err     error
	)
	switch opts.Driver {
	case DriverCSV, "":
		backend = NewCSVBackend(opts.CSVPath, logger)
	case DriverMySQL:
		backend, err = OpenMySQL(ctx, opts.MySQLDSN)
	case DriverMemory:
		backend = NewMemoryBackend()
	default:
		return nil, UnknownDriverError{Driver: opts.Driver}
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("opened task store", zap.String("driver", opts.Driver))
	return NewStore(backend, logger), nil
}

// List returns all tasks in store order.
func (s *Store) List(ctx context.Context) ([]task.Task, error) {
	return s.backend.Load(ctx)
}

// Upsert creates the task when its ID is zero and otherwise applies the
// fields set in t to the stored task with that ID, leaving omitted fields as
// they are. The due date is moved off weekends before anything is written.
// The persisted task is returned.
func (s *Store) Upsert(ctx context.Context, t task.Task) (task.Task, error) {
	today := task.DateOf(s.now())

	var (
		saved task.Task
		err   error
	)
	if t.ID == 0 {
		saved, err = s.create(ctx, t, today)
	} else {
		saved, err = s.backend.Update(ctx, t.ID, func(existing task.Task) (task.Task, error) {
			return applyUpdate(existing, t, today)
		})
	}
	if err != nil {
		return task.Task{}, err
	}

	fields := []zap.Field{
		zap.Int64("id", saved.ID),
		zap.Stringer("due_date", saved.DueDate),
	}
	if !t.DueDate.IsZero() && !t.DueDate.Equal(saved.DueDate) {
		fields = append(fields, zap.Stringer("requested_due_date", t.DueDate))
	}
	if t.ID == 0 {
		s.logger.Debug("task created", fields...)
	} else {
		s.logger.Debug("task updated", fields...)
	}
	return saved, nil
}

func (s *Store) create(ctx context.Context, t task.Task, today task.Date) (task.Task, error) {
	t = t.WithDefaults()
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	t.DueDate = task.AdjustWeekend(t.DueDate)
	t.CreatedAt = today
	t.LastModified = today
	return s.backend.Insert(ctx, t)
}

// applyUpdate merges update into existing. Enum values are only checked when
// update changes them.
func applyUpdate(existing, update task.Task, today task.Date) (task.Task, error) {
	if err := existing.ValidateUpdate(update); err != nil {
		return task.Task{}, err
	}
	merged := existing.Merge(update)
	merged.DueDate = task.AdjustWeekend(merged.DueDate)
	merged.LastModified = today
	return merged, nil
}

// Delete always fails: tasks cannot be removed through the store.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.logger.Info("rejected task delete", zap.Int64("id", id))
	return dderrors.UnsupportedOperationError{Op: "deleting tasks"}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
