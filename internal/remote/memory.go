package remote

import (
	"context"
	"errors"
	"sort"
	"sync"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

// Memory is an in-process Store. BeforeUpsert and BeforeDeleteByUser, when
// set, run at the start of the matching call and can block or fail it.
type Memory struct {
	BeforeUpsert       func(ctx context.Context, tasks []*task.Task) error
	BeforeDeleteByUser func(ctx context.Context, userID string) error

	mu      sync.Mutex
	records map[string]memoryRecord
	upserts int
	failIDs map[string]string
}

type memoryRecord struct {
	owner string
	task  *task.Task
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]memoryRecord),
		failIDs: make(map[string]string),
	}
}

// FailID makes every upsert of id fail with reason.
func (m *Memory) FailID(id, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failIDs[id] = reason
}

// UpsertCalls returns how many upsert batches have been received.
func (m *Memory) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// Seed writes tasks for userID directly, bypassing ownership checks.
func (m *Memory) Seed(userID string, tasks ...*task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.records[t.ID] = memoryRecord{owner: userID, task: wireCopy(t)}
	}
}

func (m *Memory) Upsert(ctx context.Context, userID string, tasks []*task.Task) (UpsertResult, error) {
	m.mu.Lock()
	m.upserts++
	m.mu.Unlock()

	if m.BeforeUpsert != nil {
		if err := m.BeforeUpsert(ctx, tasks); err != nil {
			return UpsertResult{}, cwerrors.RemoteUnavailableError{Op: "upsert", Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return UpsertResult{}, cwerrors.RemoteUnavailableError{Op: "upsert", Err: err}
	}
	if len(tasks) > MaxBatch {
		return UpsertResult{}, cwerrors.RemoteUnavailableError{Op: "upsert", Err: errBatchTooLarge}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res := UpsertResult{Succeeded: []string{}, Failed: map[string]string{}}
	for _, t := range tasks {
		if reason, ok := m.failIDs[t.ID]; ok {
			res.Failed[t.ID] = reason
			continue
		}
		if existing, ok := m.records[t.ID]; ok && existing.owner != userID {
			res.Failed[t.ID] = ownedByOther
			continue
		}
		m.records[t.ID] = memoryRecord{owner: userID, task: wireCopy(t)}
		res.Succeeded = append(res.Succeeded, t.ID)
	}
	return res, nil
}

func (m *Memory) QueryByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, cwerrors.RemoteUnavailableError{Op: "query", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*task.Task{}
	for _, rec := range m.records {
		if rec.owner == userID {
			out = append(out, rec.task.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if m.BeforeDeleteByUser != nil {
		if err := m.BeforeDeleteByUser(ctx, userID); err != nil {
			return 0, cwerrors.RemoteUnavailableError{Op: "delete", Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, cwerrors.RemoteUnavailableError{Op: "delete", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, rec := range m.records {
		if rec.owner == userID {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return cwerrors.RemoteUnavailableError{Op: "delete", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.owner != userID {
		return cwerrors.TaskNotFoundError{ID: id}
	}
	delete(m.records, id)
	return nil
}

var errBatchTooLarge = errors.New("batch too large")

// wireCopy keeps only what travels over the wire: local bookkeeping is
// dropped.
func wireCopy(t *task.Task) *task.Task {
	c := t.Clone()
	c.Synced = false
	c.Remote = false
	return c
}
