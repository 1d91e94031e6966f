// Package ui provides the web row browser.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	intconfig "github.com/leapstack-labs/rowbrowse/internal/config"
	rowsFeature "github.com/leapstack-labs/rowbrowse/internal/ui/features/rows"
	"github.com/leapstack-labs/rowbrowse/internal/ui/notifier"
	"github.com/leapstack-labs/rowbrowse/internal/ui/router"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Session stores idle for longer than sessionIdle are closed.
const (
	sessionIdle  = 30 * time.Minute
	sweepEvery   = time.Minute
	reloadDelay  = 100 * time.Millisecond
	shutdownWait = 5 * time.Second
)

// Server is the main UI server.
type Server struct {
	registry     *rowsFeature.Registry
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	addr         string
	watch        bool
	configFile   string
	logger       *slog.Logger
	handler      http.Handler
}

// Config holds configuration for the UI server.
type Config struct {
	Backend core.Backend
	Views   []core.ViewConfig
	// StoreOptions are applied to every session's view store.
	StoreOptions  []browse.Option
	Host          string
	Port          int
	Watch         bool
	ConfigFile    string
	SessionSecret string
	// SecureCookies restricts the session cookie to https. Serve listens on
	// plain http, so leave it off unless a TLS proxy fronts the server.
	SecureCookies bool
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Secure = cfg.SecureCookies

	s := &Server{
		registry:     rowsFeature.NewRegistry(cfg.Backend, cfg.Views, logger, cfg.StoreOptions...),
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		watch:        cfg.Watch && cfg.ConfigFile != "",
		configFile:   cfg.ConfigFile,
		logger:       logger,
	}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)
	if err := router.SetupRoutes(r, s.registry, s.sessionStore, s.notifier, logger); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	s.handler = r
	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Serve starts the UI server and blocks until the context is cancelled.
// ready, when non-nil, receives the listening address once the listener is
// open.
func (s *Server) Serve(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.logger.Info("starting UI server", slog.String("addr", "http://"+ln.Addr().String()))
	if ready != nil {
		ready(ln.Addr().String())
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-ticker.C:
				s.registry.Sweep(sessionIdle)
			}
		}
	})

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		err := srv.Shutdown(shutdownCtx)
		s.registry.Close()
		return err
	})

	return eg.Wait()
}

// watchConfig reloads the view definitions when the config file changes.
// The directory is watched so editors that replace the file are seen.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.configFile)); err != nil {
		s.logger.Error("failed to watch config directory", slog.Any("error", err))
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.configFile) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDelay, s.reloadViews)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.Any("error", err))
		}
	}
}

// reloadViews re-reads the view definitions and tells every page to reload.
// Invalid definitions are logged and the current ones kept.
func (s *Server) reloadViews() {
	views, err := intconfig.LoadViewsFile(s.configFile)
	if err != nil {
		s.logger.Error("failed to reload views", slog.String("file", s.configFile), slog.Any("error", err))
		return
	}
	s.registry.Reload(views)
	s.notifier.Broadcast(notifier.Event{Reload: true})
}

// requestLogger logs each request through logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
