// Package server is the HTTP face of the remote replica.
package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/abatilo/clockwork/internal/remote"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(store remote.Store, apiKey string, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	h := NewTaskHandler(store, logger)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))
		r.Use(UserExtractor)

		r.Route("/v1/tasks", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/upsert", h.Upsert)
			r.Delete("/", h.DeleteAll)
			r.Delete("/{id}", h.Delete)
		})
	})

	return r
}
