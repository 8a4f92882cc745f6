// Package reminder finds tasks that need a nudge and hands them to a
// Dispatcher. Delivery is at-most-once per check; de-duplication across
// checks is left to the dispatcher via Notification.Tag.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/clock"
	"github.com/abatilo/clockwork/internal/config"
	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
	"github.com/abatilo/clockwork/internal/tracker"
)

const DefaultMinInterval = 5 * time.Minute

// Notification is one reminder ready for delivery.
type Notification struct {
	TaskID string    `json:"taskId"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Tag    string    `json:"tag"`
	Due    task.Date `json:"due"`
}

// Dispatcher delivers notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, notifications []Notification) error
}

// LogDispatcher writes notifications to a structured logger.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(_ context.Context, notifications []Notification) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, n := range notifications {
		logger.Info("reminder", "task", n.TaskID, "title", n.Title, "body", n.Body, "tag", n.Tag)
	}
	return nil
}

type Options struct {
	// DataDir holds settings.yaml, where the last notification time persists.
	DataDir     string
	MinInterval time.Duration
	Dispatcher  Dispatcher
	Clock       clock.Clock
	Logger      *slog.Logger
}

type Checker struct {
	tracker     *tracker.Tracker
	dataDir     string
	minInterval time.Duration
	dispatcher  Dispatcher
	clock       clock.Clock
	logger      *slog.Logger
}

func New(tr *tracker.Tracker, opts Options) *Checker {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = LogDispatcher{Logger: opts.Logger}
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Checker{
		tracker:     tr,
		dataDir:     opts.DataDir,
		minInterval: opts.MinInterval,
		dispatcher:  opts.Dispatcher,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
}

// Due returns a notification for every reminder-enabled task whose
// effective due date is on or before the day containing now.
func (c *Checker) Due(now time.Time) ([]Notification, error) {
	tasks, err := c.tracker.List()
	if err != nil {
		return nil, err
	}
	today := task.DateOf(now.In(c.tracker.Location()))
	day := agenda.Build(tasks, today, c.tracker.StopAtEnd())

	var out []Notification
	for _, t := range day.Actionable() {
		if !t.RemindersEnabled {
			continue
		}
		out = append(out, notificationFor(t, today))
	}
	return out, nil
}

func notificationFor(t *task.Task, today task.Date) Notification {
	due := t.EffectiveDueDate()
	title := t.Name
	if t.Icon != "" {
		title = t.Icon + " " + t.Name
	}

	body := "Due today"
	if late := due.DaysUntil(today); late == 1 {
		body = "Overdue since yesterday"
	} else if late > 1 {
		body = fmt.Sprintf("Overdue by %d days", late)
	}

	return Notification{
		TaskID: t.ID,
		Title:  title,
		Body:   body,
		Tag:    fmt.Sprintf("clockwork-%s-%s", t.ID, due),
		Due:    due,
	}
}

// CheckResult reports one reminder check.
type CheckResult struct {
	Throttled bool           `json:"throttled"`
	Sent      []Notification `json:"sent"`
}

// Check dispatches due reminders unless the last dispatch was less than
// MinInterval ago. The dispatch time is persisted only after a successful
// dispatch.
func (c *Checker) Check(ctx context.Context) (CheckResult, error) {
	now := c.clock.Now()

	settings, err := config.LoadSettings(c.dataDir)
	if err != nil {
		return CheckResult{}, fmt.Errorf("load settings: %w", err)
	}
	if last := settings.LastNotificationTimestamp; last != nil && now.Sub(*last) < c.minInterval {
		c.logger.Debug("reminder check throttled", "last", last.Format(time.RFC3339))
		return CheckResult{Throttled: true}, nil
	}

	due, err := c.Due(now)
	if err != nil {
		return CheckResult{}, err
	}
	if len(due) == 0 {
		return CheckResult{Sent: []Notification{}}, nil
	}

	if err := c.dispatcher.Dispatch(ctx, due); err != nil {
		return CheckResult{}, fmt.Errorf("dispatch reminders: %w", err)
	}
	if _, err := config.UpdateSettings(c.dataDir, func(s *config.Settings) {
		at := now.UTC()
		s.LastNotificationTimestamp = &at
	}); err != nil {
		return CheckResult{}, fmt.Errorf("save settings: %w", err)
	}
	c.logger.Info("reminders dispatched", "count", len(due))
	return CheckResult{Sent: due}, nil
}

// Run checks immediately and then on every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Check(ctx); err != nil {
			c.logger.Error("reminder check failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ActionType is what the user tapped on a notification.
type ActionType string

const (
	ActionComplete ActionType = "complete"
	ActionSkip     ActionType = "skip"
)

// Action is a notification response routed back to the tracker.
type Action struct {
	Type   ActionType `json:"type"`
	TaskID string     `json:"taskId"`
}

// HandleAction applies a notification action exactly as the matching
// command would.
func (c *Checker) HandleAction(ctx context.Context, a Action) (*task.Task, error) {
	switch a.Type {
	case ActionComplete:
		return c.tracker.Complete(ctx, a.TaskID)
	case ActionSkip:
		return c.tracker.Skip(ctx, a.TaskID)
	default:
		return nil, cwerrors.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", a.Type)}
	}
}
