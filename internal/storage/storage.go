// Package storage persists clockworks on the local device.
//
// Every implementation serializes writes per record: Update runs its
// read-modify-write under a lock keyed by task id, and Put/Delete take the
// same lock. The file and sqlite backends extend that lock across processes
// so `clockwork run` and one-shot commands can share a data directory.
// Cross-record operations take no global lock.
package storage

import (
	"errors"
	"fmt"
	"sort"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

// ErrUnchanged may be returned by an Update callback to abandon the write
// without failing the call.
var ErrUnchanged = errors.New("storage: record unchanged")

// LocalStore is the device-local replica.
type LocalStore interface {
	Get(id string) (*task.Task, error)
	Put(t *task.Task) error
	Delete(id string) error
	All() ([]*task.Task, error)
	Filter(keep func(*task.Task) bool) ([]*task.Task, error)
	// Update applies fn to the stored record atomically and returns the
	// record as written.
	Update(id string, fn func(*task.Task) error) (*task.Task, error)
	Clear() error
	Exists(id string) bool
	// Subscribe returns a channel of change notifications and a function that
	// stops them. Slow subscribers miss notifications rather than block writers.
	Subscribe(buffer int) (<-chan Change, func())
}

// backend is the raw persistence a store implementation provides.
// In-process locking and notification live in base; save, remove and update
// must hold off writers in other processes themselves.
type backend interface {
	load(id string) (*task.Task, error)
	save(t *task.Task) error
	remove(id string) error
	list() ([]*task.Task, error)
	removeAll() error
	// update runs modify over one record with no other writer in between.
	update(id string, fn func(*task.Task) error) (*task.Task, bool, error)
}

type base struct {
	b      backend
	locks  recordLocks
	events notifier
}

func (s *base) Get(id string) (*task.Task, error) {
	return s.b.load(id)
}

func (s *base) Put(t *task.Task) error {
	if t == nil || t.ID == "" {
		return cwerrors.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	unlock := s.locks.lock(t.ID)
	defer unlock()

	c := t.Clone()
	if err := s.b.save(c); err != nil {
		return fmt.Errorf("save %s: %w", t.ID, err)
	}
	s.events.publish(Change{Op: OpPut, ID: t.ID})
	return nil
}

func (s *base) Delete(id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.b.remove(id); err != nil {
		return err
	}
	s.events.publish(Change{Op: OpDelete, ID: id})
	return nil
}

func (s *base) All() ([]*task.Task, error) {
	tasks, err := s.b.list()
	if err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *base) Filter(keep func(*task.Task) bool) ([]*task.Task, error) {
	tasks, err := s.All()
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *base) Update(id string, fn func(*task.Task) error) (*task.Task, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	current, written, err := s.b.update(id, fn)
	if err != nil {
		return nil, err
	}
	if written {
		s.events.publish(Change{Op: OpPut, ID: id})
	}
	return current, nil
}

// modify is the read-modify-write step shared by every backend's update.
// It reports whether save ran; ErrUnchanged from fn skips it.
func modify(id string, load func(string) (*task.Task, error), save func(*task.Task) error, fn func(*task.Task) error) (*task.Task, bool, error) {
	current, err := load(id)
	if err != nil {
		return nil, false, err
	}
	if err := fn(current); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return current, false, nil
		}
		return nil, false, err
	}
	current.ID = id
	if err := save(current.Clone()); err != nil {
		return nil, false, fmt.Errorf("save %s: %w", id, err)
	}
	return current, true, nil
}

func (s *base) Clear() error {
	if err := s.b.removeAll(); err != nil {
		return err
	}
	s.events.publish(Change{Op: OpClear})
	return nil
}

func (s *base) Exists(id string) bool {
	_, err := s.b.load(id)
	return err == nil
}

func (s *base) Subscribe(buffer int) (<-chan Change, func()) {
	return s.events.subscribe(buffer)
}

// Dirty returns every record with local changes not yet confirmed remotely.
func Dirty(s LocalStore) ([]*task.Task, error) {
	return s.Filter(func(t *task.Task) bool { return !t.Synced })
}

// Replace clears s and writes tasks in its place.
func Replace(s LocalStore, tasks []*task.Task) error {
	if err := s.Clear(); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := s.Put(t); err != nil {
			return err
		}
	}
	return nil
}

// sortTasks orders by creation time (oldest first), then by id.
func sortTasks(tasks []*task.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
