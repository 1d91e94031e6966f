package browse

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// fakeBackend serves event_logs and deliveries from memory. Where-clauses
// other than $eq and $in are ignored.
type fakeBackend struct {
	mu       sync.Mutex
	tables   map[string][]core.Row
	schemas  map[string]*core.TableSchema
	requests []core.QueryRequest
	deletes  []core.PrimaryKeyClause

	// gate, when set, blocks each Execute until a value is received.
	gate chan struct{}
}

func newFakeBackend(n int) *fakeBackend {
	logs := make([]core.Row, n)
	for i := range logs {
		logs[i] = core.Row{
			"id":      fmt.Sprintf("evt-%02d", i+1),
			"payload": map[string]any{"seq": i + 1},
			"webhook": "https://hooks.example.com/events",
		}
	}
	return &fakeBackend{
		tables: map[string][]core.Row{
			"event_logs": logs,
			"deliveries": {
				{"id": 1, "event_id": "evt-01", "status": 200},
				{"id": 2, "event_id": "evt-01", "status": 500},
				{"id": 3, "event_id": "evt-03", "status": 200},
			},
		},
		schemas: map[string]*core.TableSchema{
			"event_logs": {
				Name: "event_logs",
				Columns: []core.Column{
					{Name: "id", Type: "TEXT", PrimaryKey: true},
					{Name: "payload", Type: "JSON"},
					{Name: "webhook", Type: "TEXT"},
				},
				PrimaryKeys: []string{"id"},
			},
			"deliveries": {
				Name: "deliveries",
				Columns: []core.Column{
					{Name: "id", Type: "INTEGER", PrimaryKey: true},
					{Name: "event_id", Type: "TEXT"},
					{Name: "status", Type: "INTEGER"},
				},
				PrimaryKeys: []string{"id"},
			},
		},
	}
}

func (f *fakeBackend) Execute(ctx context.Context, req core.QueryRequest) (*core.QueryResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.tables[req.Table]
	if !ok {
		return nil, fmt.Errorf("no such table %s", req.Table)
	}
	var matched []core.Row
	for _, r := range rows {
		if matches(r, req.Where) {
			matched = append(matched, r)
		}
	}
	page := []core.Row{}
	if req.Offset < len(matched) {
		end := min(req.Offset+req.Limit, len(matched))
		page = matched[req.Offset:end]
	}
	return &core.QueryResult{Rows: page, TotalCount: len(matched)}, nil
}

func matches(r core.Row, where []core.Clause) bool {
	for _, c := range where {
		text, _ := FormatValue(r[c.Column], false)
		switch c.Operator {
		case core.OpEq:
			if text != c.Value {
				return false
			}
		case core.OpIn:
			found := false
			for _, v := range splitCSV(c.Value) {
				if v == text {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func (f *fakeBackend) Describe(_ context.Context, table string) (*core.TableSchema, error) {
	s, ok := f.schemas[table]
	if !ok {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return s, nil
}

func (f *fakeBackend) DeleteRow(_ context.Context, table string, pk core.PrimaryKeyClause) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, pk)
	rows := f.tables[table]
	for i, r := range rows {
		if fmt.Sprint(r["id"]) == fmt.Sprint(pk["id"]) {
			f.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeBackend) lastRequest() core.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) requestsFor(table string) []core.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.QueryRequest
	for _, r := range f.requests {
		if r.Table == table {
			out = append(out, r)
		}
	}
	return out
}

var _ core.Backend = (*fakeBackend)(nil)
