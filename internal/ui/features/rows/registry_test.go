package rows

import (
	"testing"
	"time"

	intconfig "github.com/leapstack-labs/rowbrowse/internal/config"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StorePerSession(t *testing.T) {
	r := NewRegistry(nil, intconfig.DefaultViews(), nil)
	t.Cleanup(r.Close)

	a := r.Store("a")
	assert.Same(t, a, r.Store("a"))
	assert.NotSame(t, a, r.Store("b"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_View(t *testing.T) {
	r := NewRegistry(nil, intconfig.DefaultViews(), nil)

	v, ok := r.View("pending_events")
	require.True(t, ok)
	assert.True(t, v.ReadOnly)

	_, ok = r.View("missing")
	assert.False(t, ok)

	defs := r.Definitions()
	defs[0].Name = "changed"
	_, ok = r.View("event_logs")
	assert.True(t, ok, "Definitions returns a copy")
}

func TestRegistry_Reload(t *testing.T) {
	r := NewRegistry(nil, intconfig.DefaultViews(), nil)
	t.Cleanup(r.Close)

	before := r.Store("a")
	r.Reload([]core.ViewConfig{{Name: "events", Table: "event_logs"}})

	assert.Equal(t, 0, r.Len(), "stores are dropped on reload")
	after := r.Store("a")
	assert.NotSame(t, before, after)

	defs := after.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "events", defs[0].Name)

	_, ok := r.View("event_logs")
	assert.False(t, ok)
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(nil, intconfig.DefaultViews(), nil)
	t.Cleanup(r.Close)

	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Store("idle")
	now = now.Add(20 * time.Minute)
	r.Store("active")
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())

	// using a store keeps it alive
	r.Store("active")
	now = now.Add(29 * time.Minute)
	assert.Equal(t, 0, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())
}
