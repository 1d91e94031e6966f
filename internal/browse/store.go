package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// Status texts shown in place of the table body.
const (
	EmptyText   = "No rows found."
	LoadingText = "Loading..."
)

// maxDepth bounds relation nesting so cyclic relation definitions terminate.
const maxDepth = 4

// Persister saves and restores the filter state of a view.
type Persister interface {
	LoadFilter(ctx context.Context, view string) (core.FilterState, bool, error)
	SaveFilter(ctx context.Context, view string, f core.FilterState) error
}

// DeletionRecorder records successful row deletions.
type DeletionRecorder interface {
	RecordDeletion(ctx context.Context, view, table string, pk core.PrimaryKeyClause, affected int64) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPersister restores filter state on Open and saves it after each query.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithDefaultLimit sets the page size of views that do not set their own.
func WithDefaultLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithRecorder records deletions.
func WithRecorder(r DeletionRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

// Store is the page-level state container: the open views with their filter
// state and last results, the single expanded cell and the active path.
//
// All state transitions happen under one mutex. Fetches run in goroutines;
// a completion is applied only when no newer query was dispatched for its
// view since it started.
type Store struct {
	backend   core.Backend
	defs      map[string]core.ViewConfig
	logger    *slog.Logger
	persister Persister
	recorder  DeletionRecorder

	defaultLimit int

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	views      map[string]*view
	roots      []string
	expanded   *CellRef
	activePath []string
	inflight   int
	idle       chan struct{}
}

type view struct {
	key      string
	def      core.ViewConfig
	relation *core.RelationConfig
	relName  string
	depth    int
	parent   string
	children []string

	schema  *core.TableSchema
	columns []string
	pks     []string

	filter core.FilterState
	result *core.QueryResult
	err    error

	loading bool
	loaded  bool
	stale   bool
	hidden  bool

	gen    uint64
	cancel context.CancelFunc
	header HeaderGuard
}

// NewStore creates a store browsing the given view definitions on backend.
func NewStore(backend core.Backend, defs []core.ViewConfig, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend: backend,
		defs:    make(map[string]core.ViewConfig, len(defs)),
		logger:  slog.New(slog.DiscardHandler),
		ctx:     ctx,
		cancel:  cancel,
		views:   make(map[string]*view),
	}
	for _, d := range defs {
		s.defs[d.Name] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Definitions returns the configured views in name order.
func (s *Store) Definitions() []core.ViewConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ViewConfig, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	sortViews(out)
	return out
}

// Open mounts the named view and its relation views and starts the first
// fetch. Opening an already open view is a no-op. It returns the view key.
func (s *Store) Open(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	if _, ok := s.views[name]; ok {
		s.mu.Unlock()
		return name, nil
	}
	def, ok := s.defs[name]
	s.mu.Unlock()
	if !ok {
		return "", &UnknownViewError{Name: name}
	}

	mounted := make(map[string]*view)
	if err := s.mount(ctx, mounted, def, nil, "", 0, map[string]bool{}); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[name]; ok {
		return name, nil
	}
	for k, v := range mounted {
		s.views[k] = v
	}
	s.roots = append(s.roots, name)
	s.refreshHiddenLocked(name)
	s.runQueryLocked(s.views[name])
	return name, nil
}

func (s *Store) mount(ctx context.Context, into map[string]*view, def core.ViewConfig, rel *core.RelationConfig, parent string, depth int, seen map[string]bool) error {
	schema, err := s.backend.Describe(ctx, def.Table)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", def.Table, err)
	}

	v := &view{
		key:    def.Name,
		def:    def,
		depth:  depth,
		parent: parent,
		schema: schema,
	}
	if rel != nil {
		r := *rel
		v.relation = &r
		v.relName = r.Name
		v.key = parent + "/" + r.Name
	}

	v.columns = def.Columns
	if len(v.columns) == 0 {
		v.columns = schema.ColumnNames()
	}
	v.pks = def.PrimaryKeys
	if len(v.pks) == 0 {
		v.pks = schema.PrimaryKeys
	}

	v.filter = core.DefaultFilterState()
	if s.defaultLimit > 0 {
		v.filter.Limit = s.defaultLimit
	}
	if def.DefaultLimit > 0 {
		v.filter.Limit = def.DefaultLimit
	}
	if s.persister != nil {
		f, ok, err := s.persister.LoadFilter(ctx, v.key)
		switch {
		case err != nil:
			s.logger.Warn("failed to restore filter state", slog.String("view", v.key), slog.Any("error", err))
		case ok && f.Validate() == nil:
			v.filter = normalizeFilter(f)
		}
	}
	into[v.key] = v

	if depth+1 >= maxDepth {
		return nil
	}
	seen[def.Name] = true
	defer delete(seen, def.Name)
	for i := range def.Relations {
		r := def.Relations[i]
		child, ok := s.lookupDef(r.View)
		if !ok {
			return &UnknownViewError{Name: r.View}
		}
		if seen[child.Name] {
			continue
		}
		v.children = append(v.children, v.key+"/"+r.Name)
		if err := s.mount(ctx, into, child, &r, v.key, depth+1, seen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) lookupDef(name string) (core.ViewConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[name]
	return d, ok
}

// Dispatch applies intents to the view in order.
func (s *Store) Dispatch(ctx context.Context, key string, intents ...Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return &UnknownViewError{Name: key}
	}
	return s.dispatchLocked(ctx, v, intents)
}

func (s *Store) dispatchLocked(ctx context.Context, v *view, intents []Intent) error {
	ran := false
	for _, in := range intents {
		s.logger.Debug("dispatch", slog.String("view", v.key), slog.String("intent", Describe(in)))
		switch in := in.(type) {
		case RunQuery:
			s.runQueryLocked(v)
			ran = true
		case ExpandCell:
			ref := in.Ref
			s.expanded = &ref
		case CollapseCell:
			s.expanded = nil
		case DeleteRow:
			if err := s.deleteLocked(ctx, v, in.PK); err != nil {
				return err
			}
		default:
			v.filter = Reduce(v.filter, in)
		}
	}
	if ran {
		s.persistLocked(v)
	}
	return nil
}

// SortByColumn sorts the view by col, toggling to descending when col is
// already the ascending primary sort key.
func (s *Store) SortByColumn(ctx context.Context, key, col string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return &UnknownViewError{Name: key}
	}
	return s.dispatchLocked(ctx, v, SortByColumnIntents(v.filter, col))
}

// HeaderClick sorts by col unless the click ends a column resize.
// It reports whether a sort was dispatched.
func (s *Store) HeaderClick(ctx context.Context, key, col string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return false, &UnknownViewError{Name: key}
	}
	if !v.header.Click() {
		s.logger.Debug("header click suppressed after resize", slog.String("view", key), slog.String("column", col))
		return false, nil
	}
	return true, s.dispatchLocked(ctx, v, SortByColumnIntents(v.filter, col))
}

// ColumnResized records a column resize so the next header click is ignored.
func (s *Store) ColumnResized(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return &UnknownViewError{Name: key}
	}
	v.header.Resized()
	return nil
}

// ChangePage moves to page. It reports false when the offset is unchanged.
func (s *Store) ChangePage(ctx context.Context, key string, page int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return false, &UnknownViewError{Name: key}
	}
	intents := ChangePageIntents(v.filter, page)
	if len(intents) == 0 {
		return false, nil
	}
	return true, s.dispatchLocked(ctx, v, intents)
}

// ChangePageSize sets the page size. It reports false when size equals the
// current limit.
func (s *Store) ChangePageSize(ctx context.Context, key string, size int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return false, &UnknownViewError{Name: key}
	}
	intents := ChangePageSizeIntents(v.filter, size)
	if len(intents) == 0 {
		return false, nil
	}
	return true, s.dispatchLocked(ctx, v, intents)
}

// ToggleCell expands ref, or collapses it when it is already expanded.
func (s *Store) ToggleCell(ref CellRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = Toggle(s.expanded, ref)
}

// Expanded returns the expanded cell, or nil.
func (s *Store) Expanded() *CellRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded == nil {
		return nil
	}
	ref := *s.expanded
	return &ref
}

// SetActivePath selects which relation view renders at each depth.
// Views that become visible are fetched when they have no current data;
// views that become hidden keep their state and are not fetched.
func (s *Store) SetActivePath(path []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePath = append([]string(nil), path...)
	for _, root := range s.roots {
		s.refreshHiddenLocked(root)
	}
}

// ActivePath returns the current active path.
func (s *Store) ActivePath() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.activePath...)
}

func (s *Store) refreshHiddenLocked(key string) {
	v, ok := s.views[key]
	if !ok {
		return
	}
	wasHidden := v.hidden
	v.hidden = !Visible(v.depth, v.relName, s.activePath)
	if p, ok := s.views[v.parent]; ok && p.hidden {
		v.hidden = true
	}
	if wasHidden && !v.hidden && (v.stale || !v.loaded) && !v.loading && v.relation != nil {
		s.runQueryLocked(v)
	}
	for _, c := range v.children {
		s.refreshHiddenLocked(c)
	}
}

func (s *Store) deleteLocked(ctx context.Context, v *view, pk core.PrimaryKeyClause) error {
	if v.def.ReadOnly || len(v.pks) == 0 {
		return ErrReadOnly
	}
	n, err := s.backend.DeleteRow(ctx, v.def.Table, pk)
	if err != nil {
		return fmt.Errorf("failed to delete row %s: %w", pk, err)
	}
	if n == 0 {
		s.logger.Warn("delete matched no rows", slog.String("view", v.key), slog.String("pk", pk.String()))
	} else {
		s.logger.Info("row deleted", slog.String("view", v.key), slog.String("pk", pk.String()))
	}
	if s.recorder != nil {
		if err := s.recorder.RecordDeletion(ctx, v.key, v.def.Table, pk, n); err != nil {
			s.logger.Warn("failed to record deletion", slog.Any("error", err))
		}
	}
	if s.expanded != nil && s.expanded.Entity == v.key {
		s.expanded = nil
	}
	s.runQueryLocked(v)
	return nil
}

func (s *Store) persistLocked(v *view) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveFilter(s.ctx, v.key, v.filter); err != nil {
		s.logger.Warn("failed to save filter state", slog.String("view", v.key), slog.Any("error", err))
	}
}

// runQueryLocked starts a fetch for v, superseding any fetch in flight.
// Hidden views are only marked stale.
func (s *Store) runQueryLocked(v *view) {
	if v.hidden {
		v.stale = true
		return
	}
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.err = nil
	v.stale = false

	req, ok := s.requestLocked(v)
	if !ok {
		v.loading = false
		v.loaded = true
		v.result = &core.QueryResult{Columns: v.columns}
		s.afterLoadLocked(v)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	v.cancel = cancel
	v.loading = true
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++

	go s.fetch(ctx, v.key, gen, req)
}

// requestLocked builds the query for v. Relation views are scoped to the
// parent page's keys; ok is false when the parent page has none.
func (s *Store) requestLocked(v *view) (core.QueryRequest, bool) {
	req := core.NewQueryRequest(v.def.Table, v.def.Columns, v.filter)
	if v.relation == nil {
		return req, true
	}
	p, ok := s.views[v.parent]
	if !ok || p.result == nil {
		return req, false
	}

	seen := make(map[string]bool)
	var keys []string
	for _, row := range p.result.Rows {
		val, ok := row.Lookup(v.relation.ParentColumn)
		if !ok || val == nil {
			continue
		}
		text, _ := FormatValue(val, false)
		if !seen[text] {
			seen[text] = true
			keys = append(keys, text)
		}
	}
	if len(keys) == 0 {
		return req, false
	}
	req.Where = append(req.Where, core.Clause{
		Column:   v.relation.Column,
		Operator: core.OpIn,
		Value:    strings.Join(keys, ","),
	})
	return req, true
}

func (s *Store) fetch(ctx context.Context, key string, gen uint64, req core.QueryRequest) {
	res, err := s.backend.Execute(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.doneLocked()

	v, ok := s.views[key]
	if !ok || v.gen != gen {
		s.logger.Debug("discarding superseded result", slog.String("view", key), slog.Uint64("generation", gen))
		return
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.loading = false
	if err != nil {
		v.err = err
		s.logger.Warn("query failed", slog.String("view", key), slog.Any("error", err))
		return
	}
	v.result = res
	v.loaded = true
	s.afterLoadLocked(v)
}

func (s *Store) afterLoadLocked(v *view) {
	for _, c := range v.children {
		if child, ok := s.views[c]; ok {
			s.runQueryLocked(child)
		}
	}
}

func (s *Store) doneLocked() {
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// Wait blocks until no fetch is in flight or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		// A fetch completing may have started child fetches.
		return s.Wait(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every fetch in flight and waits for them to finish.
func (s *Store) Close() {
	s.cancel()
	_ = s.Wait(context.Background())
}

func normalizeFilter(f core.FilterState) core.FilterState {
	f = f.Clone()
	if len(f.Where) == 0 {
		f.Where = []core.Clause{core.EmptyClause()}
	}
	if len(f.OrderBy) == 0 || !f.OrderBy[len(f.OrderBy)-1].IsEmpty() {
		f.OrderBy = append(f.OrderBy, core.EmptyOrderBy())
	}
	return f
}
