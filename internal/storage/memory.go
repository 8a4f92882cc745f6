package storage

import (
	"sync"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

// MemoryStore is a LocalStore held entirely in memory. Used for tests and
// for `--store memory` dry runs.
type MemoryStore struct {
	base
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{tasks: make(map[string]*task.Task)}
	s.b = s
	return s
}

func (s *MemoryStore) load(id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, cwerrors.TaskNotFoundError{ID: id}
	}
	return t.Clone(), nil
}

func (s *MemoryStore) save(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t.Clone()
	return nil
}

// update needs no lock of its own: base holds the record lock and nothing
// outside this process can reach the map.
func (s *MemoryStore) update(id string, fn func(*task.Task) error) (*task.Task, bool, error) {
	return modify(id, s.load, s.save, fn)
}

func (s *MemoryStore) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return cwerrors.TaskNotFoundError{ID: id}
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) list() ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (s *MemoryStore) removeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*task.Task)
	return nil
}
