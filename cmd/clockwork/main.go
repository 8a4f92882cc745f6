package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abatilo/clockwork/internal/clock"
	"github.com/abatilo/clockwork/internal/config"
	"github.com/abatilo/clockwork/internal/output"
	"github.com/abatilo/clockwork/internal/reconcile"
	"github.com/abatilo/clockwork/internal/remote"
	"github.com/abatilo/clockwork/internal/session"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/tracker"
)

//nolint:gochecknoglobals // CLI flags and formatter are package-level by design
var (
	jsonOutput bool
	verbose    bool
	configPath string
	formatter  output.Formatter
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clockwork",
		Short: "A local-first recurring task tracker",
		Long: "clockwork - keep recurring chores on schedule.\n\n" +
			"Works offline against a local store and optionally syncs with a clockwork-remote server.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if jsonOutput {
				formatter = output.NewJSONFormatter()
			} else {
				formatter = output.NewHumanFormatter()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.clockwork/config.yaml)")

	rootCmd.AddCommand(
		initCmd(),
		addCmd(),
		listCmd(),
		showCmd(),
		todayCmd(),
		doneCmd(),
		skipCmd(),
		missCmd(),
		shiftCmd(),
		editCmd(),
		rmCmd(),
		historyCmd(),
		sweepCmd(),
		remindCmd(),
		runCmd(),
		loginCmd(),
		logoutCmd(),
		sessionCmd(),
		syncCmd(),
		resolveCmd(),
		statusCmd(),
		timezoneCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app is everything a command needs, wired from config.
type app struct {
	cfg        *config.Config
	settings   *config.Settings
	loc        *time.Location
	logger     *slog.Logger
	store      storage.LocalStore
	closeStore func() error
	tracker    *tracker.Tracker
	sessions   *session.Store
	client     *remote.HTTPClient
	reconciler *reconcile.Reconciler
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func getApp() (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location(settings)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		settings:   settings,
		loc:        loc,
		logger:     logger,
		store:      store,
		closeStore: closeStore,
		sessions:   session.NewStore(cfg.DataDir, nil),
	}
	a.tracker = tracker.New(store, clock.RealClock{}, tracker.Options{
		Location:           loc,
		Logger:             logger.With("component", "tracker"),
		GuardRepeatActions: cfg.Tracker.GuardRepeatActions,
		StopAtEnd:          cfg.StopAtEnd(),
	})

	if cfg.RemoteEnabled() {
		a.client = remote.NewHTTPClient(cfg.Remote.URL, cfg.Remote.APIKey)
		a.reconciler = reconcile.New(store, a.client, a.sessions, reconcile.Options{
			PushTimeout: cfg.Remote.PushTimeout,
			Logger:      logger.With("component", "reconcile"),
		})
		a.tracker.SetRemote(a.reconciler)
	}
	return a, nil
}

// mustApp builds the app or exits with a formatted error.
func mustApp() *app {
	a, err := getApp()
	if err != nil {
		printError(err)
	}
	return a
}

func (a *app) close() {
	if err := a.closeStore(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

// requireRemote returns the reconciler or an error when no remote is set.
func (a *app) requireRemote() (*reconcile.Reconciler, error) {
	if a.reconciler == nil {
		return nil, RemoteNotConfiguredError{}
	}
	return a.reconciler, nil
}

func printOutput(s string) {
	os.Stdout.WriteString(s) //nolint:gosec // stdout write errors are unrecoverable
}

func printError(err error) {
	os.Stdout.WriteString(formatter.FormatError(err)) //nolint:gosec // stdout write errors are unrecoverable
	os.Exit(1)
}

func printMessagef(format string, args ...any) {
	printOutput(formatter.FormatMessage(fmt.Sprintf(format, args...)))
}
