package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abatilo/clockwork/internal/config"
	"github.com/abatilo/clockwork/internal/server"
)

func main() {
	// Config
	cfg, err := config.Load(os.Getenv("CLOCKWORK_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logger
	logLevel, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// SQLite
	store, err := server.OpenStore(cfg.Server.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Server.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Server.APIKey == "" {
		logger.Warn("server.api_key is empty; authentication is disabled")
	}

	// Router
	router := server.NewRouter(store, cfg.Server.APIKey, logger)

	// Server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("clockwork-remote starting", "addr", cfg.Server.Addr, "db", cfg.Server.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
