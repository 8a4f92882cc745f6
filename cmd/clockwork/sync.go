package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/output"
	"github.com/abatilo/clockwork/internal/reconcile"
)

const healthTimeout = 3 * time.Second

// syncCmd implements 'clockwork sync'.
func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes to the server",
		Run: func(cmd *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			rec, err := a.requireRemote()
			if err != nil {
				printError(err)
			}
			res, err := rec.PushDirty(cmd.Context())
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatPush(res))
		},
	}
}

// resolveCmd implements 'clockwork resolve'.
func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "resolve <import|merge|fresh>",
		Short:     "Reconcile local data with the server after sign-in",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(reconcile.PolicyImport), string(reconcile.PolicyMerge), string(reconcile.PolicyFresh)},
		Run: func(cmd *cobra.Command, args []string) {
			policy, err := reconcile.ParsePolicy(args[0])
			if err != nil {
				printError(err)
			}

			a := mustApp()
			defer a.close()

			rec, err := a.requireRemote()
			if err != nil {
				printError(err)
			}
			res, err := rec.Resolve(cmd.Context(), policy)
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatResolve(res))
		},
	}
}

// statusCmd implements 'clockwork status'.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's counts and sync state",
		Run: func(cmd *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			tasks, err := a.tracker.List()
			if err != nil {
				printError(err)
			}
			today := a.tracker.Today()

			st := output.Status{
				Today:    today,
				Timezone: a.loc.String(),
				Store:    a.cfg.Store,
				Remote:   a.cfg.Remote.URL,
				Agenda:   agenda.Build(tasks, today, a.tracker.StopAtEnd()).Counts,
				Sync:     reconcile.Status{State: reconcile.StateIdle},
			}
			if a.reconciler != nil {
				if st.Sync, err = a.reconciler.Status(); err != nil {
					printError(err)
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
				if err := a.client.Health(ctx); err != nil {
					st.RemoteError = err.Error()
				}
				cancel()
			}
			printOutput(formatter.FormatStatus(st))
		},
	}
}
