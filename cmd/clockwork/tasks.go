package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/config"
	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/output"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/task"
)

// initCmd implements 'clockwork init'.
func initCmd() *cobra.Command {
	var force, seed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the clockwork data directory",
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, _, err := loadConfig()
			if err != nil {
				printError(err)
			}
			if err = os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				printError(err)
			}

			if cfg.Store == storage.BackendFile {
				if err = storage.NewFileStore(filepath.Join(cfg.DataDir, "tasks")).Init(force); err != nil {
					printError(err)
				}
			}
			if configPath == "" {
				if _, statErr := os.Stat(config.DefaultPath()); os.IsNotExist(statErr) {
					if err = config.WriteDefault(config.DefaultPath()); err != nil {
						printError(err)
					}
				}
			}

			if seed {
				a := mustApp()
				defer a.close()
				for _, f := range seedClockworks() {
					if _, err := a.tracker.Create(cmd.Context(), f); err != nil {
						printError(err)
					}
				}
			}
			printMessagef("Initialized clockwork at %s", cfg.DataDir)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinitialize even if already exists")
	cmd.Flags().BoolVar(&seed, "seed", false, "Add a few example clockworks")
	return cmd
}

func seedClockworks() []task.Fields {
	mk := func(name, icon string, f task.Frequency) task.Fields {
		reminders := true
		return task.Fields{Name: &name, Icon: &icon, Frequency: &f, RemindersEnabled: &reminders}
	}
	return []task.Fields{
		mk("Water plants", "🪴", task.FrequencyEvery3Days),
		mk("Take out trash", "🗑", task.FrequencyWeekly),
		mk("Stretch", "🧘", task.FrequencyDaily),
	}
}

// fieldFlags holds the flags shared by add and edit.
type fieldFlags struct {
	name, icon, color, frequency, start, end, notes string
	reminders                                       bool
}

func (ff *fieldFlags) register(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&ff.name, "name", "", "Name")
	}
	cmd.Flags().StringVarP(&ff.frequency, "frequency", "f", "daily",
		"Frequency (daily, every_2_days, every_3_days, weekly, biweekly, monthly)")
	cmd.Flags().StringVar(&ff.icon, "icon", "", "Icon")
	cmd.Flags().StringVar(&ff.color, "color", "", "Color")
	cmd.Flags().StringVar(&ff.start, "start", "", "Start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&ff.end, "end", "", "End date YYYY-MM-DD (empty clears on edit)")
	cmd.Flags().StringVarP(&ff.notes, "notes", "n", "", "Notes")
	cmd.Flags().BoolVarP(&ff.reminders, "reminders", "r", false, "Enable reminders")
}

// fields converts the flags the user actually set into a patch.
func (ff *fieldFlags) fields(cmd *cobra.Command) (task.Fields, error) {
	var f task.Fields
	changed := cmd.Flags().Changed

	if changed("name") {
		f.Name = &ff.name
	}
	if changed("frequency") || cmd.Name() == "add" {
		freq, err := task.ParseFrequency(ff.frequency)
		if err != nil {
			return f, err
		}
		f.Frequency = &freq
	}
	if changed("icon") {
		f.Icon = &ff.icon
	}
	if changed("color") {
		f.Color = &ff.color
	}
	if changed("start") {
		d, err := task.ParseDate(ff.start)
		if err != nil {
			return f, cwerrors.ValidationError{Field: "start_date", Reason: err.Error()}
		}
		f.StartDate = &d
	}
	if changed("end") {
		var d task.Date
		if ff.end != "" {
			parsed, err := task.ParseDate(ff.end)
			if err != nil {
				return f, cwerrors.ValidationError{Field: "end_date", Reason: err.Error()}
			}
			d = parsed
		}
		f.EndDate = &d
	}
	if changed("notes") {
		f.Notes = &ff.notes
	}
	if changed("reminders") {
		f.RemindersEnabled = &ff.reminders
	}
	return f, nil
}

// addCmd implements 'clockwork add'.
func addCmd() *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new clockwork",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			f, err := ff.fields(cmd)
			if err != nil {
				printError(err)
			}
			f.Name = &args[0]

			t, err := a.tracker.Create(cmd.Context(), f)
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(a.row(t)))
		},
	}
	ff.register(cmd, false)
	return cmd
}

// listCmd implements 'clockwork list'.
func listCmd() *cobra.Command {
	var status string
	var dirty bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clockworks",
		Run: func(_ *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			if status != "" && !task.IsValidStatus(task.Status(status)) {
				printError(InvalidArgumentError{Name: "status", Value: status, Want: "overdue, due_today, upcoming or ended"})
			}

			tasks, err := a.tracker.List()
			if err != nil {
				printError(err)
			}
			agenda.Sort(tasks)

			rows := output.Rows(tasks, a.tracker.Today(), a.tracker.StopAtEnd())
			filtered := rows[:0]
			for _, r := range rows {
				if status != "" && r.Status != task.Status(status) {
					continue
				}
				if dirty && r.Task.Synced {
					continue
				}
				filtered = append(filtered, r)
			}
			printOutput(formatter.FormatTaskList(filtered))
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show this status (overdue, due_today, upcoming, ended)")
	cmd.Flags().BoolVar(&dirty, "dirty", false, "Only show clockworks not yet synced")
	return cmd
}

// showCmd implements 'clockwork show'.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show clockwork details",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			t, err := a.tracker.Get(args[0])
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(a.row(t)))
		},
	}
}

// todayCmd implements 'clockwork today'.
func todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show what is overdue, due today and coming up",
		Run: func(_ *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			tasks, err := a.tracker.List()
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatAgenda(agenda.Build(tasks, a.tracker.Today(), a.tracker.StopAtEnd())))
		},
	}
}

// actionCmd builds a single-id command that applies op through the tracker.
func actionCmd(use, short string, op func(ctx context.Context, a *app, id string) (*task.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			t, err := op(cmd.Context(), a, args[0])
			if err != nil {
				printError(err)
			}
			if t == nil {
				printError(cwerrors.TaskNotFoundError{ID: args[0]})
			}
			printOutput(formatter.FormatTask(a.row(t)))
		},
	}
}

// doneCmd implements 'clockwork done'.
func doneCmd() *cobra.Command {
	return actionCmd("done", "Mark today's occurrence completed", func(ctx context.Context, a *app, id string) (*task.Task, error) {
		return a.tracker.Complete(ctx, id)
	})
}

// skipCmd implements 'clockwork skip'.
func skipCmd() *cobra.Command {
	return actionCmd("skip", "Skip the current occurrence", func(ctx context.Context, a *app, id string) (*task.Task, error) {
		return a.tracker.Skip(ctx, id)
	})
}

// missCmd implements 'clockwork miss'.
func missCmd() *cobra.Command {
	var date string
	cmd := actionCmd("miss", "Record a missed occurrence", func(ctx context.Context, a *app, id string) (*task.Task, error) {
		missed := a.tracker.Today()
		if date != "" {
			d, err := task.ParseDate(date)
			if err != nil {
				return nil, InvalidArgumentError{Name: "date", Value: date, Want: "YYYY-MM-DD"}
			}
			missed = d
		}
		return a.tracker.RecordMiss(ctx, id, missed)
	})
	cmd.Flags().StringVar(&date, "date", "", "Date that was missed (default today)")
	return cmd
}

// shiftCmd implements 'clockwork shift'.
func shiftCmd() *cobra.Command {
	var days int
	cmd := actionCmd("shift", "Snooze (positive) or pull in (negative) the due date", func(ctx context.Context, a *app, id string) (*task.Task, error) {
		return a.tracker.Shift(ctx, id, days)
	})
	cmd.Flags().IntVarP(&days, "days", "d", 1, "Days to shift by")
	return cmd
}

// editCmd implements 'clockwork edit'.
func editCmd() *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a clockwork",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			f, err := ff.fields(cmd)
			if err != nil {
				printError(err)
			}
			t, err := a.tracker.Edit(cmd.Context(), args[0], f)
			if err != nil {
				printError(err)
			}
			if t == nil {
				printError(cwerrors.TaskNotFoundError{ID: args[0]})
			}
			printOutput(formatter.FormatTask(a.row(t)))
		},
	}
	ff.register(cmd, true)
	return cmd
}

// rmCmd implements 'clockwork rm'.
func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a clockwork",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			t, err := a.tracker.Delete(cmd.Context(), args[0])
			if err != nil {
				printError(err)
			}
			if t == nil {
				printError(cwerrors.TaskNotFoundError{ID: args[0]})
			}
			printMessagef("Removed clockwork %s (%s)", t.ID, t.Name)
		},
	}
}

// historyCmd implements 'clockwork history'.
func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show completed, skipped and missed occurrences",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			t, err := a.tracker.Get(args[0])
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatHistory(t))
		},
	}
}

func (a *app) row(t *task.Task) output.Row {
	return output.Row{Task: t, Status: task.StatusAt(t, a.tracker.Today(), a.tracker.StopAtEnd())}
}
