// Package sweeper records missed occurrences for overdue clockworks without
// user action.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/abatilo/clockwork/internal/task"
	"github.com/abatilo/clockwork/internal/tracker"
)

const (
	DefaultInterval  = time.Hour
	DefaultMaxPasses = 1
)

type Options struct {
	// Interval between sweeps in Run.
	Interval time.Duration
	// MaxPasses bounds how many misses a single task can accrue per sweep.
	// A task several cycles behind converges over several sweeps.
	MaxPasses int
	Logger    *slog.Logger
}

// Result summarizes one sweep.
type Result struct {
	Scanned int `json:"scanned"`
	Missed  int `json:"missed"`
	Failed  int `json:"failed"`
	// Pending counts tasks still overdue after this sweep.
	Pending int `json:"pending"`
}

type Sweeper struct {
	tracker   *tracker.Tracker
	interval  time.Duration
	maxPasses int
	logger    *slog.Logger
}

func New(tr *tracker.Tracker, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sweeper{
		tracker:   tr,
		interval:  opts.Interval,
		maxPasses: opts.MaxPasses,
		logger:    opts.Logger,
	}
}

// Sweep records at most MaxPasses misses for every overdue task. The
// overdue check is repeated under each task's record lock, so a concurrent
// completion is never followed by a stale miss.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	today := s.tracker.Today()

	tasks, err := s.tracker.List()
	if err != nil {
		return res, err
	}

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++
		if !s.overdue(t, today) {
			continue
		}

		current := t
		for range s.maxPasses {
			after, missed, err := s.tracker.RecordMissIfOverdue(ctx, t.ID, today)
			if err != nil {
				res.Failed++
				s.logger.Error("sweep failed", "id", t.ID, "error", err)
				current = nil
				break
			}
			current = after
			if !missed || after == nil {
				break
			}
			res.Missed++
			s.logger.Info("missed occurrence recorded", "id", t.ID, "missed", after.MissedDates[0], "next_due", after.NextDue)
			if !s.overdue(after, today) {
				break
			}
		}
		if current != nil && s.overdue(current, today) {
			res.Pending++
		}
	}

	s.logger.Info("sweep complete",
		"today", today,
		"scanned", res.Scanned,
		"missed", res.Missed,
		"failed", res.Failed,
		"pending", res.Pending,
	)
	return res, nil
}

// Run sweeps immediately and then every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep error", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) overdue(t *task.Task, today task.Date) bool {
	if s.tracker.StopAtEnd() && task.PastEnd(t) {
		return false
	}
	return t.EffectiveDueDate().Before(today)
}
