// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	rowsFeature "github.com/leapstack-labs/rowbrowse/internal/ui/features/rows"
	"github.com/leapstack-labs/rowbrowse/internal/ui/notifier"
	"github.com/leapstack-labs/rowbrowse/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	registry *rowsFeature.Registry,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) error {
	// Static assets
	router.Handle("/static/*", resources.Handler())

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return rowsFeature.SetupRoutes(router, registry, sessionStore, notify, logger)
}
