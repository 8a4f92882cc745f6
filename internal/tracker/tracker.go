// Package tracker applies user and sweeper actions to clockworks.
//
// Every mutation runs as a single storage.LocalStore.Update, so it is atomic
// per record and never interleaves with another writer on the same task.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abatilo/clockwork/internal/clock"
	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/recurrence"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/task"
)

// RemoteDeleter removes the remote replica of a deleted task.
type RemoteDeleter interface {
	DeleteRemote(ctx context.Context, id string) error
}

type Options struct {
	Location *time.Location
	Logger   *slog.Logger
	Remote   RemoteDeleter
	// GuardRepeatActions rejects a second complete/skip on the same day
	// while the next occurrence is still in the future.
	GuardRepeatActions bool
	// StopAtEnd treats tasks whose next occurrence is past their end date
	// as ended: they are never recorded as missed.
	StopAtEnd bool
}

type Tracker struct {
	store     storage.LocalStore
	clock     clock.Clock
	loc       *time.Location
	remote    RemoteDeleter
	logger    *slog.Logger
	guard     bool
	stopAtEnd bool
}

func New(store storage.LocalStore, clk clock.Clock, opts Options) *Tracker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tracker{
		store:     store,
		clock:     clk,
		loc:       opts.Location,
		remote:    opts.Remote,
		logger:    opts.Logger,
		guard:     opts.GuardRepeatActions,
		stopAtEnd: opts.StopAtEnd,
	}
}

// SetRemote installs the remote deleter after construction. The reconciler
// depends on the tracker's store, so it is usually built second.
func (tr *Tracker) SetRemote(r RemoteDeleter) {
	tr.remote = r
}

// Location returns the zone used to compute "today".
func (tr *Tracker) Location() *time.Location {
	return tr.loc
}

// StopAtEnd reports whether ended tasks are excluded from sweeping.
func (tr *Tracker) StopAtEnd() bool {
	return tr.stopAtEnd
}

// Today is the current civil date in the tracker's zone.
func (tr *Tracker) Today() task.Date {
	return recurrence.Today(tr.clock.Now(), tr.loc)
}

// Create validates f and stores a new task. StartDate defaults to today.
func (tr *Tracker) Create(_ context.Context, f task.Fields) (*task.Task, error) {
	now := tr.clock.Now().UTC()
	if f.StartDate == nil {
		today := tr.Today()
		f.StartDate = &today
	}
	name := ""
	if f.Name != nil {
		name = *f.Name
	}

	id := task.GenerateID(name, now, tr.store.Exists)
	t, err := task.New(id, f, now)
	if err != nil {
		return nil, err
	}
	if err := tr.store.Put(t); err != nil {
		return nil, err
	}
	tr.logger.Info("task created", "id", t.ID, "name", t.Name, "frequency", t.Frequency, "next_due", t.NextDue)
	return t, nil
}

// Complete records today's completion and advances the anchor by one period.
// The new due date is computed from the old anchor, not from today, so a late
// completion does not drift the schedule.
func (tr *Tracker) Complete(_ context.Context, id string) (*task.Task, error) {
	today := tr.Today()
	return tr.mutate(id, "complete", func(t *task.Task) error {
		if tr.guard && repeated(t, t.CompletedDates, today) {
			return cwerrors.AlreadyActedError{ID: t.ID, Date: today.String()}
		}
		t.CompletedDates = task.PushFront(t.CompletedDates, today)
		t.Streak++
		t.LastCompleted = &today
		tr.advance(t, t.NextDue)
		return nil
	})
}

// Skip records today's skip and advances the anchor. Streak is untouched.
func (tr *Tracker) Skip(_ context.Context, id string) (*task.Task, error) {
	today := tr.Today()
	return tr.mutate(id, "skip", func(t *task.Task) error {
		if tr.guard && repeated(t, t.SkippedDates, today) {
			return cwerrors.AlreadyActedError{ID: t.ID, Date: today.String()}
		}
		t.SkippedDates = task.PushFront(t.SkippedDates, today)
		tr.advance(t, t.NextDue)
		return nil
	})
}

// RecordMiss records an explicit miss on the given date and resets the
// streak. The schedule resumes one period after the missed date.
func (tr *Tracker) RecordMiss(_ context.Context, id string, missed task.Date) (*task.Task, error) {
	return tr.mutate(id, "miss", func(t *task.Task) error {
		tr.recordMiss(t, missed)
		return nil
	})
}

// RecordMissIfOverdue records a miss against the current anchor only if the
// task is still overdue once its record lock is held. A completion that
// landed between the sweeper's scan and this call wins.
func (tr *Tracker) RecordMissIfOverdue(_ context.Context, id string, today task.Date) (*task.Task, bool, error) {
	missed := false
	t, err := tr.mutate(id, "sweep", func(t *task.Task) error {
		if !t.EffectiveDueDate().Before(today) {
			return storage.ErrUnchanged
		}
		if tr.stopAtEnd && task.PastEnd(t) {
			return storage.ErrUnchanged
		}
		tr.recordMiss(t, t.NextDue)
		missed = true
		return nil
	})
	return t, missed, err
}

// Shift snoozes (positive) or pulls forward (negative) the effective due
// date. The anchor is not moved.
func (tr *Tracker) Shift(_ context.Context, id string, days int) (*task.Task, error) {
	if days == 0 {
		return tr.Get(id)
	}
	return tr.mutate(id, "shift", func(t *task.Task) error {
		t.DueDateOffset += days
		return nil
	})
}

// Edit applies a validated patch. Changing the frequency does not recompute
// NextDue; the new period applies from the next action.
func (tr *Tracker) Edit(_ context.Context, id string, f task.Fields) (*task.Task, error) {
	if f.IsEmpty() {
		return tr.Get(id)
	}
	return tr.mutate(id, "edit", func(t *task.Task) error {
		f.Apply(t)
		return t.Validate()
	})
}

// Delete removes the task locally, then best-effort from the remote.
// A remote failure is logged and never restores the local record.
func (tr *Tracker) Delete(ctx context.Context, id string) (*task.Task, error) {
	t, err := tr.store.Get(id)
	if err != nil {
		return tr.notFound(id, "delete", err)
	}
	if err := tr.store.Delete(id); err != nil {
		return tr.notFound(id, "delete", err)
	}
	tr.logger.Info("task deleted", "id", id)

	if tr.remote != nil && t.Remote {
		if err := tr.remote.DeleteRemote(ctx, id); err != nil {
			tr.logger.Warn("remote delete failed", "id", id, "error", err)
		}
	}
	return t, nil
}

// Get returns the task or TaskNotFoundError.
func (tr *Tracker) Get(id string) (*task.Task, error) {
	return tr.store.Get(id)
}

// List returns every task, oldest first.
func (tr *Tracker) List() ([]*task.Task, error) {
	return tr.store.All()
}

// mutate wraps fn in a store update that marks the record dirty. Missing
// records are logged and reported as (nil, nil).
func (tr *Tracker) mutate(id, op string, fn func(*task.Task) error) (*task.Task, error) {
	now := tr.clock.Now().UTC()
	t, err := tr.store.Update(id, func(t *task.Task) error {
		if err := fn(t); err != nil {
			return err
		}
		t.Synced = false
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return tr.notFound(id, op, err)
	}
	tr.logger.Debug("task updated", "op", op, "id", id, "next_due", t.NextDue, "streak", t.Streak)
	return t, nil
}

func (tr *Tracker) notFound(id, op string, err error) (*task.Task, error) {
	var nf cwerrors.TaskNotFoundError
	if errors.As(err, &nf) {
		tr.logger.Warn("task not found", "op", op, "id", id)
		return nil, nil
	}
	return nil, err
}

func (tr *Tracker) recordMiss(t *task.Task, missed task.Date) {
	t.MissedDates = task.PushFront(t.MissedDates, missed)
	t.Streak = 0
	tr.advance(t, missed)
}

// advance moves the anchor one period past from and clears any snooze.
func (tr *Tracker) advance(t *task.Task, from task.Date) {
	t.NextDue = recurrence.NextDueDate(from, t.Frequency, tr.loc)
	t.DueDateOffset = 0
}

func repeated(t *task.Task, history []task.Date, today task.Date) bool {
	return len(history) > 0 && history[0] == today && t.EffectiveDueDate().After(today)
}
