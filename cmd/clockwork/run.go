package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/reconcile"
	"github.com/abatilo/clockwork/internal/reminder"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/sweeper"
)

func (a *app) sweeper() *sweeper.Sweeper {
	return sweeper.New(a.tracker, sweeper.Options{
		Interval:  a.cfg.Sweep.Interval,
		MaxPasses: a.cfg.Sweep.MaxPasses,
		Logger:    a.logger.With("component", "sweeper"),
	})
}

func (a *app) reminders() *reminder.Checker {
	return reminder.New(a.tracker, reminder.Options{
		DataDir:     a.cfg.DataDir,
		MinInterval: a.cfg.Reminder.MinInterval,
		Logger:      a.logger.With("component", "reminder"),
	})
}

// sweepCmd implements 'clockwork sweep'.
func sweepCmd() *cobra.Command {
	var passes int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Record misses for overdue clockworks",
		Run: func(cmd *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			if cmd.Flags().Changed("passes") {
				a.cfg.Sweep.MaxPasses = passes
			}
			res, err := a.sweeper().Sweep(cmd.Context())
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatSweep(res))
		},
	}
	cmd.Flags().IntVar(&passes, "passes", 1, "Misses to record per clockwork in one sweep")
	return cmd
}

// remindCmd implements 'clockwork remind' command group.
func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Reminder checks and notification actions",
	}
	cmd.AddCommand(remindCheckCmd(), remindActCmd())
	return cmd
}

// remindCheckCmd implements 'clockwork remind check'.
func remindCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Send reminders for clockworks due today or overdue",
		Run: func(cmd *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			res, err := a.reminders().Check(cmd.Context())
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatReminders(res))
		},
	}
}

// remindActCmd implements 'clockwork remind act'.
func remindActCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "act <complete|skip> <id>",
		Short:     "Apply a notification action",
		Args:      cobra.ExactArgs(2), //nolint:mnd // CLI takes 2 positional args
		ValidArgs: []string{string(reminder.ActionComplete), string(reminder.ActionSkip)},
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			t, err := a.reminders().HandleAction(cmd.Context(), reminder.Action{Type: reminder.ActionType(args[0]), TaskID: args[1]})
			if err != nil {
				printError(err)
			}
			if t == nil {
				printError(cwerrors.TaskNotFoundError{ID: args[1]})
			}
			printOutput(formatter.FormatTask(a.row(t)))
		},
	}
}

// runCmd implements 'clockwork run'.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sweeper, reminders and background sync until interrupted",
		Run: func(cmd *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return a.sweeper().Run(ctx)
			})
			if a.cfg.Reminder.Enabled {
				g.Go(func() error {
					return a.reminders().Run(ctx, a.cfg.Reminder.Interval)
				})
			}
			if a.reconciler != nil {
				g.Go(func() error {
					return pushLoop(ctx, a.reconciler, a.store, a.cfg.Remote.PushInterval, a.cfg.Remote.PushDebounce, a.logger.With("component", "sync"))
				})
			}

			a.logger.Info("clockwork running", "data_dir", a.cfg.DataDir, "store", a.cfg.Store, "timezone", a.loc.String())
			if err := g.Wait(); err != nil {
				printError(err)
			}
			a.logger.Info("clockwork stopped")
		},
	}
}

// pushLoop pushes on a fixed interval and shortly after local changes.
func pushLoop(ctx context.Context, rec *reconcile.Reconciler, store storage.LocalStore, interval, debounce time.Duration, logger *slog.Logger) error {
	changes, unsubscribe := store.Subscribe(64) //nolint:mnd // change buffer
	defer unsubscribe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Stopped until the first change arrives.
	pending := time.NewTimer(debounce)
	pending.Stop()
	defer pending.Stop()

	push := func(reason string) {
		res, err := rec.PushDirty(ctx)
		var auth cwerrors.AuthRequiredError
		var gated cwerrors.ResolutionPendingError
		switch {
		case errors.As(err, &auth), errors.As(err, &gated):
			logger.Debug("push skipped", "reason", reason, "error", err)
		case err != nil:
			logger.Warn("push failed", "reason", reason, "error", err)
		case res.Pushed > 0:
			logger.Info("pushed", "reason", reason, "synced", len(res.Synced), "failed", len(res.Failed))
		}
	}

	push("startup")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			push("interval")
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			pending.Reset(debounce)
		case <-pending.C:
			push("change")
		}
	}
}
