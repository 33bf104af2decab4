package storage

import (
	"context"
	"slices"
	"sync"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/task"
)

// MemoryBackend keeps tasks in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu    sync.Mutex
	tasks []task.Task
}

// NewMemoryBackend returns a backend seeded with the given tasks.
func NewMemoryBackend(seed ...task.Task) *MemoryBackend {
	return &MemoryBackend{tasks: slices.Clone(seed)}
}

func (m *MemoryBackend) Load(_ context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tasks), nil
}

func (m *MemoryBackend) Insert(_ context.Context, t task.Task) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = task.NextID(task.IDs(m.tasks))
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *MemoryBackend) Update(_ context.Context, id int64, apply UpdateFunc) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.tasks, func(existing task.Task) bool { return existing.ID == id })
	if i < 0 {
		return task.Task{}, dderrors.TaskNotFoundError{ID: id}
	}
	updated, err := apply(m.tasks[i])
	if err != nil {
		return task.Task{}, err
	}
	updated.ID = id
	m.tasks[i] = updated
	return updated, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
