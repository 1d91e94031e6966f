package rows

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/rowbrowse/internal/ui/notifier"
)

// SetupRoutes registers the row browser routes.
func SetupRoutes(
	router chi.Router,
	registry *Registry,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(registry, sessionStore, notify, logger)

	// Page routes
	router.Get("/", handlers.IndexPage)
	router.Get("/views/{view}", handlers.ViewPage)

	// API routes, each answering with an SSE patch of the view
	router.Route("/api/views/{view}", func(r chi.Router) {
		r.Get("/rows", handlers.RowsSSE)
		r.Get("/updates", handlers.Updates)
		r.Post("/sort", handlers.SortSSE)
		r.Post("/page", handlers.PageSSE)
		r.Post("/limit", handlers.LimitSSE)
		r.Post("/expand", handlers.ExpandSSE)
		r.Post("/collapse", handlers.CollapseSSE)
		r.Post("/delete", handlers.DeleteSSE)
		r.Post("/where", handlers.WhereSSE)
		r.Delete("/where", handlers.RemoveWhereSSE)
	})

	return nil
}
