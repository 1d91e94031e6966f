package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	intconfig "github.com/leapstack-labs/rowbrowse/internal/config"
	"github.com/leapstack-labs/rowbrowse/internal/demo"
	"github.com/leapstack-labs/rowbrowse/internal/testutil"
	"github.com/leapstack-labs/rowbrowse/pkg/adapters/sqlite"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestModel opens view on a seeded in-memory database and returns the
// model after its first load.
func newTestModel(t *testing.T, view string) Model {
	t.Helper()
	ctx := context.Background()

	a := sqlite.New(testutil.NewTestLogger(t))
	require.NoError(t, a.Connect(ctx, core.AdapterConfig{Type: "sqlite"}))
	t.Cleanup(func() { _ = a.Close() })
	_, err := demo.Seed(ctx, a, demo.Options{Events: 12})
	require.NoError(t, err)

	store := browse.NewStore(a, intconfig.DefaultViews(), browse.WithLogger(testutil.NewTestLogger(t)))
	t.Cleanup(store.Close)
	key, err := store.Open(ctx, view)
	require.NoError(t, err)

	m := New(ctx, store, key)
	return settle(t, m)
}

// settle delivers the loaded message the model's pending wait would send.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	return update(t, m, m.wait()())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_FirstLoad(t *testing.T) {
	m := newTestModel(t, "event_logs")

	assert.False(t, m.loading)
	assert.Len(t, m.table.Rows(), 10)
	assert.Len(t, m.table.Columns(), 7)

	out := m.View()
	assert.Contains(t, out, "Processed Events")
	assert.Contains(t, out, "Rows 1-10 of 12")
	assert.Contains(t, out, "Page 1 of 2")
	assert.Contains(t, out, "invocations", "relation tab is shown")
}

func TestModel_SortBySelectedColumn(t *testing.T) {
	m := newTestModel(t, "event_logs")

	// move to trigger_name
	m = update(t, m, runes("l"))
	assert.Equal(t, 1, m.col)
	assert.Equal(t, "[trigger_name]", m.table.Columns()[1].Title)

	m = settle(t, update(t, m, runes("s")))
	col, dir, ok := m.current().SortKey()
	require.True(t, ok)
	assert.Equal(t, "trigger_name", col)
	assert.Equal(t, core.Asc, dir)
	assert.Equal(t, "[trigger_name ▲]", m.table.Columns()[1].Title)

	m = settle(t, update(t, m, runes("s")))
	_, dir, _ = m.current().SortKey()
	assert.Equal(t, core.Desc, dir)
}

func TestModel_Paging(t *testing.T) {
	m := newTestModel(t, "event_logs")

	m = settle(t, update(t, m, runes("n")))
	assert.Equal(t, 10, m.current().Filter.Offset)
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "Rows 11-12 of 12")

	// no next page: nothing is dispatched
	next, cmd := m.Update(runes("n"))
	assert.Nil(t, cmd)
	assert.Equal(t, 10, next.(Model).current().Filter.Offset)

	m = settle(t, update(t, m, runes("p")))
	assert.Equal(t, 0, m.current().Filter.Offset)
}

func TestModel_PageSize(t *testing.T) {
	m := newTestModel(t, "event_logs")

	m = settle(t, update(t, m, runes("+")))
	assert.Equal(t, 20, m.current().Filter.Limit)
	assert.Len(t, m.table.Rows(), 12)
	assert.Equal(t, "20 rows per page", m.status)
	assert.NotContains(t, m.View(), "Page 1 of", "pagination hidden when all rows fit")

	m = settle(t, update(t, m, runes("-")))
	m = settle(t, update(t, m, runes("-")))
	assert.Equal(t, 5, m.current().Filter.Limit)
}

func TestModel_ExpandCell(t *testing.T) {
	m := newTestModel(t, "event_logs")

	// ids are 36 character uuids
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	ref := m.store.Expanded()
	require.NotNil(t, ref)
	assert.Equal(t, "id", ref.Column)
	assert.Equal(t, 0, ref.Row)

	id := m.current().Rows[0]["id"].(string)
	assert.Equal(t, "(expanded)", m.table.Rows()[0][0])
	assert.Contains(t, m.View(), id)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.store.Expanded())
	assert.NotContains(t, m.View(), id)

	// trigger names are short
	m = update(t, m, runes("l"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.store.Expanded())
	assert.Equal(t, "Cell is shown in full", m.status)
}

func TestModel_DeleteRow(t *testing.T) {
	m := newTestModel(t, "event_logs")

	m = update(t, m, runes("d"))
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "(y/N)")

	m = update(t, m, runes("x"))
	assert.Nil(t, m.confirm)
	assert.Equal(t, "Delete cancelled", m.status)
	assert.Equal(t, 12, m.current().TotalCount)

	m = update(t, m, runes("d"))
	m = settle(t, update(t, m, runes("y")))
	assert.Nil(t, m.err)
	assert.Equal(t, 11, m.current().TotalCount)
	assert.Contains(t, m.status, "Deleted")
}

func TestModel_DeleteReadOnly(t *testing.T) {
	m := newTestModel(t, "pending_events")

	m = update(t, m, runes("d"))
	assert.Nil(t, m.confirm)
	assert.Equal(t, "Rows of this view cannot be deleted", m.status)
	assert.Contains(t, m.View(), "(read only)")
}

func TestModel_RelationTabs(t *testing.T) {
	m := newTestModel(t, "event_logs")

	m = settle(t, update(t, m, tea.KeyMsg{Type: tea.KeyTab}))
	assert.Equal(t, "event_logs/invocations", m.focus)
	assert.Equal(t, []string{"event_logs", "invocations"}, m.store.ActivePath())
	v := m.current()
	assert.False(t, v.Hidden)
	assert.NotEmpty(t, v.Rows)
	assert.Equal(t, 0, m.col)

	m = settle(t, update(t, m, tea.KeyMsg{Type: tea.KeyTab}))
	assert.Equal(t, "event_logs", m.focus)
	assert.Empty(t, m.store.ActivePath())
}

func TestModel_NoRelations(t *testing.T) {
	m := newTestModel(t, "pending_events")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "pending_events", m.focus)
	assert.Equal(t, "View has no relations", m.status)
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, "event_logs")

	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, next.View())
}

func TestStepPageSize(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		bigger bool
		want   int
		ok     bool
	}{
		{name: "bigger from default", limit: 10, bigger: true, want: 20, ok: true},
		{name: "smaller from default", limit: 10, bigger: false, want: 5, ok: true},
		{name: "largest", limit: 100, bigger: true, ok: false},
		{name: "smallest", limit: 5, bigger: false, ok: false},
		{name: "custom limit steps to neighbour", limit: 15, bigger: true, want: 20, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stepPageSize(browse.NewPagination(200, tt.limit, 0), tt.bigger)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhereLine(t *testing.T) {
	f := core.DefaultFilterState()
	assert.Empty(t, whereLine(f))

	f.Where = []core.Clause{
		{Column: "delivered", Operator: core.OpEq, Value: "false"},
		core.EmptyClause(),
		{Column: "tries", Operator: core.OpGt, Value: "1"},
	}
	assert.Equal(t, "where delivered eq false and tries gt 1", whereLine(f))
}
