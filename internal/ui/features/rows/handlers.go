package rows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/internal/ui/features/rows/components"
	"github.com/leapstack-labs/rowbrowse/internal/ui/features/rows/pages"
	"github.com/leapstack-labs/rowbrowse/internal/ui/notifier"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// fetchTimeout bounds how long a request waits for its fetches before the
// page is rendered in its loading state.
const fetchTimeout = 10 * time.Second

// Handlers provides HTTP handlers for the row browser.
type Handlers struct {
	registry     *Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *Registry, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
	}
}

// sessionID returns the browser's session id, issuing one on first visit.
// It must run before anything is written to w.
func (h *Handlers) sessionID(w http.ResponseWriter, r *http.Request) string {
	sess, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		// An undecodable cookie yields a fresh session.
		h.logger.Debug("session cookie rejected", slog.Any("error", err))
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", slog.Any("error", err))
	}
	return id
}

// IndexPage lists the configured views.
func (h *Handlers) IndexPage(w http.ResponseWriter, r *http.Request) {
	h.sessionID(w, r)
	if err := pages.IndexPage(h.registry.Definitions()).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ViewPage renders a view with its first page of rows.
func (h *Handlers) ViewPage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	def, ok := h.registry.View(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	id := h.sessionID(w, r)
	store := h.registry.Store(id)

	if _, err := store.Open(r.Context(), name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.wait(r.Context(), store)

	section, err := h.section(store, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := pages.ViewPage(def.DisplayTitle(), name, section).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RowsSSE selects the active relation path and patches the view.
func (h *Handlers) RowsSSE(w http.ResponseWriter, r *http.Request) {
	var path []string
	if p := r.URL.Query().Get("path"); p != "" {
		path = strings.Split(p, ",")
	}
	h.act(w, r, func(_ context.Context, store *browse.Store, _ string) error {
		store.SetActivePath(path)
		return nil
	})
}

// SortSSE sorts by the column query parameter. A click that ends a column
// resize carries resized=1; it records the resize so the header guard
// swallows the click.
func (h *Handlers) SortSSE(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	col := q.Get("column")
	resized := q.Get("resized") == "1"
	h.act(w, r, func(ctx context.Context, store *browse.Store, key string) error {
		if col == "" {
			return errors.New("column is required")
		}
		if resized {
			if err := store.ColumnResized(key); err != nil {
				return err
			}
		}
		_, err := store.HeaderClick(ctx, key, col)
		return err
	})
}

// PageSSE moves to the zero-based page query parameter.
func (h *Handlers) PageSSE(w http.ResponseWriter, r *http.Request) {
	page, perr := strconv.Atoi(r.URL.Query().Get("page"))
	h.act(w, r, func(ctx context.Context, store *browse.Store, key string) error {
		if perr != nil {
			return fmt.Errorf("invalid page: %w", perr)
		}
		_, err := store.ChangePage(ctx, key, page)
		return err
	})
}

// LimitSSE changes the page size to the size query parameter.
func (h *Handlers) LimitSSE(w http.ResponseWriter, r *http.Request) {
	size, serr := strconv.Atoi(r.URL.Query().Get("size"))
	h.act(w, r, func(ctx context.Context, store *browse.Store, key string) error {
		if serr != nil {
			return fmt.Errorf("invalid page size: %w", serr)
		}
		_, err := store.ChangePageSize(ctx, key, size)
		return err
	})
}

// ExpandSSE toggles the expanded cell.
func (h *Handlers) ExpandSSE(w http.ResponseWriter, r *http.Request) {
	col := r.URL.Query().Get("column")
	row, rerr := strconv.Atoi(r.URL.Query().Get("row"))
	h.act(w, r, func(_ context.Context, store *browse.Store, key string) error {
		if rerr != nil || col == "" {
			return errors.New("column and row are required")
		}
		store.ToggleCell(browse.CellRef{Entity: key, Column: col, Row: row})
		return nil
	})
}

// CollapseSSE clears the expanded cell.
func (h *Handlers) CollapseSSE(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, store *browse.Store, key string) error {
		return store.Dispatch(ctx, key, browse.CollapseCell{})
	})
}

// DeleteSSE deletes the row identified by the pk.<column> query parameters
// and tells other sessions showing the same table.
func (h *Handlers) DeleteSSE(w http.ResponseWriter, r *http.Request) {
	pk := pkFromQuery(r.URL.Query())
	var origin string
	h.actAs(w, r, &origin, func(ctx context.Context, store *browse.Store, key string) error {
		v, err := store.View(key)
		if err != nil {
			return err
		}
		if v.ReadOnly || len(v.PrimaryKeys) == 0 {
			return browse.ErrReadOnly
		}
		if err := checkPrimaryKey(pk, v.PrimaryKeys); err != nil {
			return err
		}
		if err := store.Dispatch(ctx, key, browse.DeleteRow{PK: pk}); err != nil {
			return err
		}
		h.notifier.Broadcast(notifier.Event{Table: v.Table, Origin: origin})
		return nil
	})
}

// WhereSSE sets a where-clause from the form signals.
func (h *Handlers) WhereSSE(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals WhereSignals
	serr := datastar.ReadSignals(r, &signals)

	h.act(w, r, func(ctx context.Context, store *browse.Store, key string) error {
		if serr != nil {
			return fmt.Errorf("failed to read signals: %w", serr)
		}
		c, err := clauseFromSignals(signals)
		if err != nil {
			return err
		}
		v, err := store.View(key)
		if err != nil {
			return err
		}
		return store.Dispatch(ctx, key, browse.SetWhereIntents(v.Filter, c)...)
	})
}

// RemoveWhereSSE removes the where-clause at the index query parameter.
func (h *Handlers) RemoveWhereSSE(w http.ResponseWriter, r *http.Request) {
	index, ierr := strconv.Atoi(r.URL.Query().Get("index"))
	h.act(w, r, func(ctx context.Context, store *browse.Store, key string) error {
		if ierr != nil {
			return fmt.Errorf("invalid index: %w", ierr)
		}
		v, err := store.View(key)
		if err != nil {
			return err
		}
		intents := browse.RemoveWhereIntents(v.Filter, index)
		if intents == nil {
			return fmt.Errorf("no where-clause at %d", index)
		}
		return store.Dispatch(ctx, key, intents...)
	})
}

// Updates is the long-lived SSE endpoint of a view page. It re-fetches and
// patches the view when another session deletes rows from one of its
// tables, and reloads the page when view definitions change.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	root := chi.URLParam(r, "view")
	id := h.sessionID(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-updates:
			if ev.Reload {
				_ = sse.ExecuteScript("window.location.reload()")
				continue
			}
			if ev.Origin == id {
				continue
			}
			if err := h.refresh(ctx, sse, id, root, ev.Table); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// refresh re-runs every view of root's tree that shows table and patches it.
func (h *Handlers) refresh(ctx context.Context, sse *datastar.ServerSentEventGenerator, id, root, table string) error {
	store := h.registry.Store(id)
	tree, err := store.Tree(root)
	if err != nil {
		return err
	}
	affected := false
	for _, v := range tree {
		if v.Table != table {
			continue
		}
		affected = true
		if err := store.Dispatch(ctx, v.Key, browse.RunQuery{}); err != nil {
			return err
		}
	}
	if !affected {
		return nil
	}
	h.wait(ctx, store)
	section, err := h.section(store, root)
	if err != nil {
		return err
	}
	return sse.PatchElementTempl(section)
}

// act runs fn against the view addressed by the request and patches the
// refreshed view section.
func (h *Handlers) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, *browse.Store, string) error) {
	var id string
	h.actAs(w, r, &id, fn)
}

// actAs is act, storing the session id in id before fn runs.
func (h *Handlers) actAs(w http.ResponseWriter, r *http.Request, id *string, fn func(context.Context, *browse.Store, string) error) {
	root := chi.URLParam(r, "view")
	if _, ok := h.registry.View(root); !ok {
		http.NotFound(w, r)
		return
	}
	*id = h.sessionID(w, r)
	store := h.registry.Store(*id)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if _, err := store.Open(ctx, root); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		key = root
	}
	if key != root && !strings.HasPrefix(key, root+"/") {
		_ = sse.ConsoleError(fmt.Errorf("view %q is not part of %q", key, root))
		return
	}

	if err := fn(ctx, store, key); err != nil {
		h.logger.Debug("view action failed", slog.String("view", key), slog.String("path", r.URL.Path), slog.Any("error", err))
		_ = sse.ConsoleError(err)
	}

	h.wait(ctx, store)
	section, err := h.section(store, root)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.PatchElementTempl(section); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) wait(ctx context.Context, store *browse.Store) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	if err := store.Wait(ctx); err != nil {
		h.logger.Debug("rendering before fetches settled", slog.Any("error", err))
	}
}

func (h *Handlers) section(store *browse.Store, root string) (templ.Component, error) {
	tree, err := store.Tree(root)
	if err != nil {
		return nil, err
	}
	return components.ViewSection(root, tree, store.Expanded(), store.ActivePath()), nil
}

// pkFromQuery collects the pk.<column> parameters of a delete request.
func pkFromQuery(q url.Values) core.PrimaryKeyClause {
	pk := make(core.PrimaryKeyClause)
	for name, vals := range q {
		col, ok := strings.CutPrefix(name, components.PKParamPrefix)
		if !ok || col == "" || len(vals) == 0 {
			continue
		}
		pk[col] = vals[0]
	}
	return pk
}

// checkPrimaryKey requires pk to name exactly the view's primary-key columns.
func checkPrimaryKey(pk core.PrimaryKeyClause, keys []string) error {
	if len(pk) == 0 {
		return core.ErrNoPrimaryKey
	}
	for _, k := range keys {
		if _, ok := pk[k]; !ok {
			return fmt.Errorf("%w: %q is required", core.ErrNoPrimaryKey, k)
		}
	}
	if len(pk) != len(keys) {
		return fmt.Errorf("%w: expected columns %v, got %v", core.ErrNoPrimaryKey, keys, pk.Columns())
	}
	return nil
}

func clauseFromSignals(s WhereSignals) (core.Clause, error) {
	col := strings.TrimSpace(s.Column)
	if col == "" {
		return core.Clause{}, errors.New("choose a column to filter on")
	}
	op, err := core.ParseOperator(s.Operator)
	if err != nil {
		return core.Clause{}, err
	}
	if op == "" {
		op = core.OpEq
	}
	if s.Value == "" && op != core.OpIsNull {
		return core.Clause{}, errors.New("enter a value to filter on")
	}
	return core.Clause{Column: col, Operator: op, Value: s.Value}, nil
}
