package rows

import (
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// Registry holds one view store per browser session, so each session has
// its own filter state, expanded cell and active path.
type Registry struct {
	backend core.Backend
	opts    []browse.Option
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	defs   []core.ViewConfig
	stores map[string]*sessionStore
}

type sessionStore struct {
	store    *browse.Store
	lastUsed time.Time
}

// NewRegistry creates a registry whose stores browse defs on backend.
func NewRegistry(backend core.Backend, defs []core.ViewConfig, logger *slog.Logger, opts ...browse.Option) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		backend: backend,
		opts:    append([]browse.Option{browse.WithLogger(logger)}, opts...),
		logger:  logger,
		now:     time.Now,
		defs:    defs,
		stores:  make(map[string]*sessionStore),
	}
}

// Store returns the store of session id, creating it on first use.
func (r *Registry) Store(id string) *browse.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		s = &sessionStore{store: browse.NewStore(r.backend, r.defs, r.opts...)}
		r.stores[id] = s
		r.logger.Debug("session store created", slog.String("session", id))
	}
	s.lastUsed = r.now()
	return s.store
}

// Definitions returns the current view definitions.
func (r *Registry) Definitions() []core.ViewConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.ViewConfig(nil), r.defs...)
}

// View returns the definition of the named view.
func (r *Registry) View(name string) (core.ViewConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.defs {
		if d.Name == name {
			return d, true
		}
	}
	return core.ViewConfig{}, false
}

// Reload replaces the view definitions. Existing session stores are closed
// and recreated with the new definitions on next use.
func (r *Registry) Reload(defs []core.ViewConfig) {
	r.mu.Lock()
	old := r.stores
	r.defs = defs
	r.stores = make(map[string]*sessionStore)
	r.mu.Unlock()

	for _, s := range old {
		s.store.Close()
	}
	r.logger.Info("view definitions reloaded", slog.Int("views", len(defs)))
}

// Sweep closes the stores of sessions idle for longer than maxIdle and
// returns how many were closed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*browse.Store
	for id, s := range r.stores {
		if s.lastUsed.Before(cutoff) {
			idle = append(idle, s.store)
			delete(r.stores, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		r.logger.Debug("idle session stores closed", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Len returns the number of live session stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close closes every session store.
func (r *Registry) Close() {
	r.mu.Lock()
	old := r.stores
	r.stores = make(map[string]*sessionStore)
	r.mu.Unlock()
	for _, s := range old {
		s.store.Close()
	}
}
