package browse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/rowbrowse/internal/testutil"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testViews = []core.ViewConfig{
	{
		Name:  "event_logs",
		Table: "event_logs",
		Relations: []core.RelationConfig{
			{Name: "deliveries", View: "deliveries", Column: "event_id", ParentColumn: "id"},
		},
	},
	{Name: "deliveries", Table: "deliveries"},
	{Name: "event_logs_ro", Table: "event_logs", ReadOnly: true},
}

func newTestStore(t *testing.T, backend *fakeBackend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	s := NewStore(backend, testViews, opts...)
	t.Cleanup(s.Close)
	return s
}

func openAndWait(t *testing.T, s *Store, name string) ViewState {
	t.Helper()
	ctx := context.Background()
	key, err := s.Open(ctx, name)
	require.NoError(t, err)
	require.NoError(t, s.Wait(ctx))
	v, err := s.View(key)
	require.NoError(t, err)
	return v
}

func TestStore_OpenFetchesDefaults(t *testing.T) {
	backend := newFakeBackend(25)
	s := newTestStore(t, backend)

	v := openAndWait(t, s, "event_logs")
	assert.True(t, v.Loaded)
	assert.Equal(t, 25, v.TotalCount)
	assert.Len(t, v.Rows, 10)
	assert.Equal(t, core.DefaultFilterState(), v.Filter)
	assert.Equal(t, []string{"id", "payload", "webhook"}, v.Columns)
	assert.Equal(t, []string{"id"}, v.PrimaryKeys)
	assert.Equal(t, "", v.Status())

	req := backend.requestsFor("event_logs")[0]
	assert.Empty(t, req.Where, "placeholder clauses are never sent")
	assert.Empty(t, req.OrderBy)
	assert.Equal(t, 10, req.Limit)

	_, err := s.Open(context.Background(), "event_logs")
	require.NoError(t, err)
	assert.Len(t, backend.requestsFor("event_logs"), 1, "reopening does not refetch")
}

func TestStore_UnknownView(t *testing.T) {
	s := newTestStore(t, newFakeBackend(1))

	_, err := s.Open(context.Background(), "nope")
	var uve *UnknownViewError
	require.ErrorAs(t, err, &uve)
	assert.Equal(t, "nope", uve.Name)

	_, err = s.ChangePage(context.Background(), "nope", 1)
	assert.ErrorAs(t, err, &uve)
}

func TestStore_ChangePage(t *testing.T) {
	backend := newFakeBackend(25)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	v, _ := s.View("event_logs")
	p := v.Pagination()
	assert.Equal(t, 3, p.PageCount)
	assert.Equal(t, 0, p.CurrentPage)

	changed, err := s.ChangePage(ctx, "event_logs", 2)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, s.Wait(ctx))

	assert.Equal(t, 20, backend.lastRequest().Offset)
	v, _ = s.View("event_logs")
	assert.Equal(t, 20, v.Filter.Offset)
	assert.Len(t, v.Rows, 5)
	assert.Equal(t, 2, v.Pagination().CurrentPage)

	before := backend.requestCount()
	changed, err = s.ChangePage(ctx, "event_logs", 2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, backend.requestCount(), "same page does not refetch")
}

func TestStore_ChangePageSize(t *testing.T) {
	backend := newFakeBackend(25)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	changed, err := s.ChangePageSize(ctx, "event_logs", 10)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.ChangePageSize(ctx, "event_logs", 25)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, s.Wait(ctx))

	v, _ := s.View("event_logs")
	assert.Len(t, v.Rows, 25)
	assert.False(t, v.Pagination().Visible())
}

func TestStore_SortByColumnTwice(t *testing.T) {
	backend := newFakeBackend(25)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	_, err := s.ChangePage(ctx, "event_logs", 1)
	require.NoError(t, err)
	require.NoError(t, s.Wait(ctx))

	require.NoError(t, s.SortByColumn(ctx, "event_logs", "id"))
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, core.Asc, backend.lastRequest().OrderBy[0].Direction)

	require.NoError(t, s.SortByColumn(ctx, "event_logs", "id"))
	require.NoError(t, s.Wait(ctx))

	req := backend.lastRequest()
	assert.Equal(t, []core.OrderBy{{Column: "id", Direction: core.Desc, Nulls: core.NullsLast}}, req.OrderBy)
	assert.Equal(t, 0, req.Offset)

	v, _ := s.View("event_logs")
	col, dir, ok := v.SortKey()
	assert.True(t, ok)
	assert.Equal(t, "id", col)
	assert.Equal(t, core.Desc, dir)
	assert.True(t, v.Filter.OrderBy[len(v.Filter.OrderBy)-1].IsEmpty())
}

func TestStore_HeaderClickAfterResize(t *testing.T) {
	backend := newFakeBackend(5)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	require.NoError(t, s.ColumnResized("event_logs"))
	sorted, err := s.HeaderClick(ctx, "event_logs", "id")
	require.NoError(t, err)
	assert.False(t, sorted)
	assert.Equal(t, 1, backend.requestCount())

	sorted, err = s.HeaderClick(ctx, "event_logs", "id")
	require.NoError(t, err)
	assert.True(t, sorted)
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, 2, backend.requestCount())
}

func TestStore_LastDispatchWins(t *testing.T) {
	backend := newFakeBackend(25)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	backend.mu.Lock()
	backend.gate = make(chan struct{})
	backend.mu.Unlock()

	_, err := s.ChangePage(ctx, "event_logs", 1)
	require.NoError(t, err)
	_, err = s.ChangePage(ctx, "event_logs", 2)
	require.NoError(t, err)

	v, _ := s.View("event_logs")
	assert.True(t, v.Loading)

	// The first fetch was superseded when the second was dispatched; whatever
	// it returns once released must be discarded.
	close(backend.gate)
	require.NoError(t, s.Wait(ctx))

	v, _ = s.View("event_logs")
	assert.False(t, v.Loading)
	assert.NoError(t, v.Err)
	assert.Equal(t, 20, v.Filter.Offset)
	require.Len(t, v.Rows, 5)
	assert.Equal(t, "evt-21", v.Rows[0]["id"])
}

func TestStore_ExpandedCellIsSingle(t *testing.T) {
	s := newTestStore(t, newFakeBackend(3))
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	a := CellRef{Entity: "event_logs", Column: "webhook", Row: 0}
	b := CellRef{Entity: "event_logs", Column: "webhook", Row: 1}

	require.NoError(t, s.Dispatch(ctx, "event_logs", ExpandCell{Ref: a}))
	require.NoError(t, s.Dispatch(ctx, "event_logs", ExpandCell{Ref: b}))
	assert.Equal(t, &b, s.Expanded())

	v, _ := s.View("event_logs")
	table := v.Render(s.Expanded())
	assert.False(t, table.Rows[0].Cells[2].Expanded)
	assert.True(t, table.Rows[1].Cells[2].Expanded)

	s.ToggleCell(b)
	assert.Nil(t, s.Expanded())

	require.NoError(t, s.Dispatch(ctx, "event_logs", ExpandCell{Ref: a}, CollapseCell{}))
	assert.Nil(t, s.Expanded())
}

func TestStore_DeleteRow(t *testing.T) {
	backend := newFakeBackend(3)
	s := newTestStore(t, backend)
	ctx := context.Background()
	v := openAndWait(t, s, "event_logs")

	table := v.Render(nil)
	require.NotNil(t, table.Rows[0].Delete)

	require.NoError(t, s.Dispatch(ctx, "event_logs", DeleteRow{PK: table.Rows[0].Delete.PK}))
	require.NoError(t, s.Wait(ctx))

	require.Len(t, backend.deletes, 1)
	assert.Equal(t, core.PrimaryKeyClause{"id": "evt-01"}, backend.deletes[0])

	v, _ = s.View("event_logs")
	assert.Equal(t, 2, v.TotalCount, "delete re-runs the query")
}

func TestStore_DeleteRowReadOnly(t *testing.T) {
	backend := newFakeBackend(3)
	s := newTestStore(t, backend)
	v := openAndWait(t, s, "event_logs_ro")

	table := v.Render(nil)
	assert.False(t, table.HasActions)
	assert.Nil(t, table.Rows[0].Delete)

	err := s.Dispatch(context.Background(), "event_logs_ro", DeleteRow{PK: core.PrimaryKeyClause{"id": "evt-01"}})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Empty(t, backend.deletes)
}

func TestStore_EmptyResult(t *testing.T) {
	backend := newFakeBackend(3)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	require.NoError(t, s.Dispatch(ctx, "event_logs",
		SetWhereColumn{Column: "id", Index: 0},
		SetWhereOperator{Operator: core.OpEq, Index: 0},
		SetWhereValue{Value: "missing", Index: 0},
		RunQuery{},
	))
	require.NoError(t, s.Wait(ctx))

	v, _ := s.View("event_logs")
	assert.Equal(t, EmptyText, v.Status())
	assert.Equal(t, []core.Clause{{Column: "id", Operator: core.OpEq, Value: "missing"}}, backend.lastRequest().Where)
}

func TestStore_HiddenRelationsAreNotFetched(t *testing.T) {
	backend := newFakeBackend(3)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	tree, err := s.Tree("event_logs")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	child := tree[1]
	assert.Equal(t, "event_logs/deliveries", child.Key)
	assert.Equal(t, 1, child.Depth)
	assert.True(t, child.Hidden)
	assert.False(t, child.Loaded)
	assert.Empty(t, backend.requestsFor("deliveries"))

	s.SetActivePath([]string{"event_logs", "deliveries"})
	require.NoError(t, s.Wait(ctx))

	reqs := backend.requestsFor("deliveries")
	require.Len(t, reqs, 1)
	assert.Equal(t, []core.Clause{{Column: "event_id", Operator: core.OpIn, Value: "evt-01,evt-02,evt-03"}}, reqs[0].Where)

	child, err = s.View("event_logs/deliveries")
	require.NoError(t, err)
	assert.False(t, child.Hidden)
	assert.Equal(t, 3, child.TotalCount)

	// Hiding and re-showing keeps the loaded state without refetching.
	require.NoError(t, s.Dispatch(ctx, "event_logs/deliveries", SetLimit{N: 5}))
	s.SetActivePath([]string{"event_logs"})
	s.SetActivePath([]string{"event_logs", "deliveries"})
	require.NoError(t, s.Wait(ctx))
	assert.Len(t, backend.requestsFor("deliveries"), 1)

	child, _ = s.View("event_logs/deliveries")
	assert.Equal(t, 5, child.Filter.Limit)
}

func TestStore_HiddenRelationMarkedStale(t *testing.T) {
	backend := newFakeBackend(3)
	s := newTestStore(t, backend)
	ctx := context.Background()
	openAndWait(t, s, "event_logs")

	s.SetActivePath([]string{"event_logs", "deliveries"})
	require.NoError(t, s.Wait(ctx))
	s.SetActivePath(nil)

	// The parent reloads while the relation is hidden.
	require.NoError(t, s.SortByColumn(ctx, "event_logs", "id"))
	require.NoError(t, s.Wait(ctx))
	assert.Len(t, backend.requestsFor("deliveries"), 1)

	s.SetActivePath([]string{"event_logs", "deliveries"})
	require.NoError(t, s.Wait(ctx))
	assert.Len(t, backend.requestsFor("deliveries"), 2)
}

type memPersister struct {
	mu    sync.Mutex
	saved map[string]core.FilterState
}

func (p *memPersister) LoadFilter(_ context.Context, view string) (core.FilterState, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.saved[view]
	return f, ok, nil
}

func (p *memPersister) SaveFilter(_ context.Context, view string, f core.FilterState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[view] = f.Clone()
	return nil
}

func TestStore_PersistsFilterState(t *testing.T) {
	backend := newFakeBackend(25)
	p := &memPersister{saved: map[string]core.FilterState{}}
	ctx := context.Background()

	s := newTestStore(t, backend, WithPersister(p))
	openAndWait(t, s, "event_logs")
	require.NoError(t, s.SortByColumn(ctx, "event_logs", "webhook"))
	require.NoError(t, s.Wait(ctx))
	_, err := s.ChangePage(ctx, "event_logs", 1)
	require.NoError(t, err)
	require.NoError(t, s.Wait(ctx))

	restored := newTestStore(t, backend, WithPersister(p))
	v := openAndWait(t, restored, "event_logs")
	assert.Equal(t, 10, v.Filter.Offset)
	col, dir, ok := v.SortKey()
	assert.True(t, ok)
	assert.Equal(t, "webhook", col)
	assert.Equal(t, core.Asc, dir)
	assert.Equal(t, 10, backend.lastRequest().Offset)
}

type failingBackend struct{ *fakeBackend }

func (failingBackend) Execute(context.Context, core.QueryRequest) (*core.QueryResult, error) {
	return nil, errors.New("connection refused")
}

func TestStore_FetchErrorIsStored(t *testing.T) {
	s := NewStore(failingBackend{newFakeBackend(1)}, testViews, WithLogger(testutil.NewTestLogger(t)))
	defer s.Close()

	v := openAndWait(t, s, "event_logs")
	require.Error(t, v.Err)
	assert.False(t, v.Loading)
	assert.Equal(t, "", v.Status())
}

func TestStore_WaitHonoursContext(t *testing.T) {
	backend := newFakeBackend(3)
	backend.gate = make(chan struct{})
	s := newTestStore(t, backend)

	_, err := s.Open(context.Background(), "event_logs")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	v, _ := s.View("event_logs")
	assert.Equal(t, LoadingText, v.Status())
}

func TestStore_DefaultLimit(t *testing.T) {
	backend := newFakeBackend(30)
	s := newTestStore(t, backend, WithDefaultLimit(25))

	v := openAndWait(t, s, "event_logs")
	assert.Equal(t, 25, v.Filter.Limit)
	assert.Len(t, v.Rows, 25)
	assert.Equal(t, 2, v.Pagination().PageCount)
}
