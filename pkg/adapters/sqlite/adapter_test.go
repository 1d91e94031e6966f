package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectMemory(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{}))
	t.Cleanup(func() { _ = adp.Close() })

	ctx := context.Background()
	require.NoError(t, adp.Exec(ctx, `
		CREATE TABLE event_logs (
			id TEXT PRIMARY KEY,
			trigger_name TEXT NOT NULL,
			payload JSON,
			delivered INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)
	`))
	require.NoError(t, adp.Exec(ctx, `
		INSERT INTO event_logs (id, trigger_name, payload, delivered, error) VALUES
			('evt-1', 'user_created', '{"id":1}', 1, NULL),
			('evt-2', 'User_Updated', '{"id":1,"name":"x"}', 0, 'timeout'),
			('evt-3', 'order_placed', NULL, 1, NULL)
	`))
	require.NoError(t, adp.Exec(ctx, `CREATE VIEW failed_events AS SELECT * FROM event_logs WHERE delivered = 0`))
	return adp
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t)

	meta, err := adp.GetTableMetadata(ctx, "event_logs")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Schema)
	assert.False(t, meta.IsView)
	require.Len(t, meta.Columns, 5)
	assert.Equal(t, "id", meta.Columns[0].Name)
	assert.True(t, meta.Columns[0].PrimaryKey)
	assert.Equal(t, 1, meta.Columns[0].Position)
	assert.False(t, meta.Columns[1].Nullable)
	assert.True(t, meta.Columns[2].IsJSON())
	assert.Equal(t, []string{"id"}, meta.PrimaryKeys())

	view, err := adp.GetTableMetadata(ctx, "failed_events")
	require.NoError(t, err)
	assert.True(t, view.IsView)
	assert.Empty(t, view.PrimaryKeys())

	_, err = adp.GetTableMetadata(ctx, "missing")
	assert.Error(t, err)
}

func TestAdapter_Execute(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t)

	tests := []struct {
		name      string
		req       core.QueryRequest
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "sorted descending",
			req:       core.QueryRequest{Table: "event_logs", OrderBy: []core.OrderBy{{Column: "id", Direction: core.Desc}}, Limit: 10},
			wantIDs:   []string{"evt-3", "evt-2", "evt-1"},
			wantTotal: 3,
		},
		{
			name: "case-insensitive like without ILIKE",
			req: core.QueryRequest{
				Table:   "event_logs",
				Where:   []core.Clause{{Column: "trigger_name", Operator: core.OpILike, Value: "user_%"}},
				OrderBy: []core.OrderBy{{Column: "id", Direction: core.Asc}},
				Limit:   10,
			},
			wantIDs:   []string{"evt-1", "evt-2"},
			wantTotal: 2,
		},
		{
			name: "in list",
			req: core.QueryRequest{
				Table:   "event_logs",
				Where:   []core.Clause{{Column: "id", Operator: core.OpIn, Value: "evt-1,evt-3"}},
				OrderBy: []core.OrderBy{{Column: "id", Direction: core.Asc}},
				Limit:   10,
			},
			wantIDs:   []string{"evt-1", "evt-3"},
			wantTotal: 2,
		},
		{
			name: "nulls first",
			req: core.QueryRequest{
				Table:   "event_logs",
				OrderBy: []core.OrderBy{{Column: "payload", Direction: core.Desc, Nulls: core.NullsFirst}},
				Limit:   1,
			},
			wantIDs:   []string{"evt-3"},
			wantTotal: 3,
		},
		{
			name:      "paged",
			req:       core.QueryRequest{Table: "event_logs", OrderBy: []core.OrderBy{{Column: "id", Direction: core.Asc}}, Limit: 2, Offset: 2},
			wantIDs:   []string{"evt-3"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := adp.Execute(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, result.TotalCount)

			var ids []string
			for _, row := range result.Rows {
				ids = append(ids, row["id"].(string))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAdapter_ExecuteJSONColumn(t *testing.T) {
	adp := connectMemory(t)

	result, err := adp.Execute(context.Background(), core.QueryRequest{
		Table: "event_logs",
		Where: []core.Clause{{Column: "id", Operator: core.OpEq, Value: "evt-1"}},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, json.RawMessage(`{"id":1}`), result.Rows[0]["payload"])

	v, ok := result.Rows[0].Lookup("error")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestAdapter_DeleteRow(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t)

	n, err := adp.DeleteRow(ctx, "event_logs", core.PrimaryKeyClause{"id": "evt-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = adp.DeleteRow(ctx, "event_logs", core.PrimaryKeyClause{"id": "evt-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = adp.DeleteRow(ctx, "event_logs", core.PrimaryKeyClause{})
	assert.ErrorIs(t, err, core.ErrNoPrimaryKey)
}

func TestAdapter_LoadCSV(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t)

	csvPath := filepath.Join(t.TempDir(), "hooks.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,url\nhook-a,https://a\nhook-b,https://b\n"), 0600))
	require.NoError(t, adp.LoadCSV(ctx, "hooks", csvPath))

	schema, err := adp.Describe(ctx, "hooks")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "url"}, schema.ColumnNames())
	assert.False(t, schema.HasPrimaryKeys())

	result, err := adp.Execute(ctx, core.QueryRequest{Table: "hooks", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("sqlite")
	require.True(t, ok)

	adp, ok := factory(nil).(*Adapter)
	require.True(t, ok)
	assert.Equal(t, "sqlite", adp.DialectName())
	assert.False(t, adp.Dialect().ILike)
}
