// Package demo creates the event trigger tables browsed by the default views
// and fills them with deterministic sample rows.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
)

// Table names created by Seed.
const (
	EventsTable      = "event_logs"
	InvocationsTable = "event_invocation_logs"
	PendingView      = "pending_events"
)

// DefaultEvents is the number of events seeded when Options.Events is zero.
const DefaultEvents = 42

var triggers = []string{"user_signup", "order_placed", "invoice_paid", "profile_updated"}

// epoch anchors created_at so seeded data is reproducible.
var epoch = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// Options controls seeding.
type Options struct {
	Events int
	// Drop removes existing demo tables first.
	Drop   bool
	Logger *slog.Logger
}

// Result reports what was written.
type Result struct {
	Events      int
	Invocations int
}

// EventID returns the deterministic id of the i-th seeded event.
func EventID(i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "rowbrowse:event:%d", i)).String()
}

// Seed creates the demo schema on a and inserts sample rows.
func Seed(ctx context.Context, a adapter.Adapter, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := opts.Events
	if n <= 0 {
		n = DefaultEvents
	}
	d := a.Dialect()

	if opts.Drop {
		for _, stmt := range []string{
			"DROP VIEW IF EXISTS " + d.QuoteIdent(PendingView),
			"DROP TABLE IF EXISTS " + d.QuoteIdent(InvocationsTable),
			"DROP TABLE IF EXISTS " + d.QuoteIdent(EventsTable),
		} {
			if err := a.Exec(ctx, stmt); err != nil {
				return Result{}, fmt.Errorf("failed to drop demo tables: %w", err)
			}
		}
	}

	for _, stmt := range schema(d) {
		if err := a.Exec(ctx, stmt); err != nil {
			return Result{}, fmt.Errorf("failed to create demo schema: %w", err)
		}
	}

	var res Result
	for i := range n {
		ev := event(i)
		sqlStr, args, err := d.Builder().
			Insert(d.QuoteIdent(EventsTable)).
			Columns("id", "trigger_name", "payload", "webhook", "delivered", "error", "tries", "created_at").
			Values(ev.id, ev.trigger, ev.payload, ev.webhook, ev.delivered, ev.failed, ev.tries, ev.createdAt).
			ToSql()
		if err != nil {
			return res, fmt.Errorf("failed to build insert: %w", err)
		}
		if err := a.Exec(ctx, sqlStr, args...); err != nil {
			return res, fmt.Errorf("failed to insert event %d: %w", i, err)
		}
		res.Events++

		for j := range ev.attempts {
			status := 200
			if j < ev.attempts-1 || ev.failed {
				status = 500
			}
			sqlStr, args, err := d.Builder().
				Insert(d.QuoteIdent(InvocationsTable)).
				Columns("id", "event_id", "status", "request", "response", "created_at").
				Values(
					uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "rowbrowse:invocation:%d:%d", i, j)).String(),
					ev.id, status, ev.payload, responseBody(status),
					ev.createdAt.Add(time.Duration(j+1)*time.Minute),
				).
				ToSql()
			if err != nil {
				return res, fmt.Errorf("failed to build insert: %w", err)
			}
			if err := a.Exec(ctx, sqlStr, args...); err != nil {
				return res, fmt.Errorf("failed to insert invocation for event %d: %w", i, err)
			}
			res.Invocations++
		}
	}

	logger.Info("demo data seeded", slog.Int("events", res.Events), slog.Int("invocations", res.Invocations))
	return res, nil
}

// schema returns the DDL for the dialect's JSON and timestamp types.
func schema(d *adapter.Dialect) []string {
	jsonType, tsType, idType := "JSON", "TIMESTAMP", "VARCHAR(36)"
	switch d.Name {
	case "postgres":
		jsonType = "JSONB"
	case "mysql":
		tsType = "DATETIME"
	}

	createView := "CREATE OR REPLACE VIEW"
	if d.Name == "sqlite" {
		createView = "CREATE VIEW IF NOT EXISTS"
	}

	q := d.QuoteIdent
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s PRIMARY KEY,
	trigger_name VARCHAR(255) NOT NULL,
	payload %s,
	webhook TEXT,
	delivered BOOLEAN NOT NULL,
	error BOOLEAN NOT NULL,
	tries INTEGER,
	created_at %s NOT NULL
)`, q(EventsTable), idType, jsonType, tsType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s PRIMARY KEY,
	event_id %s NOT NULL,
	status INTEGER NOT NULL,
	request %s,
	response TEXT,
	created_at %s NOT NULL
)`, q(InvocationsTable), idType, idType, jsonType, tsType),
		fmt.Sprintf(`%s %s AS SELECT id, trigger_name, tries, created_at FROM %s WHERE delivered = FALSE`,
			createView, q(PendingView), q(EventsTable)),
	}
}

type sampleEvent struct {
	id        string
	trigger   string
	payload   any
	webhook   any
	delivered bool
	failed    bool
	tries     any
	createdAt time.Time
	attempts  int
}

// event builds the i-th sample. Every seventh event has a NULL payload and
// every fifth a NULL tries count so the browser's NULL rendering shows up.
func event(i int) sampleEvent {
	trigger := triggers[i%len(triggers)]
	ev := sampleEvent{
		id:        EventID(i),
		trigger:   trigger,
		delivered: i%3 != 0,
		failed:    i%6 == 0,
		createdAt: epoch.Add(time.Duration(i) * 17 * time.Minute),
		webhook:   fmt.Sprintf("https://hooks.example.com/v1/%s/deliver?attempt=%d", trigger, i),
		attempts:  1 + i%3,
	}
	if i%5 != 0 {
		ev.tries = ev.attempts
	}
	if i%7 != 0 {
		body, _ := json.Marshal(map[string]any{
			"op": "INSERT",
			"data": map[string]any{
				"old": nil,
				"new": map[string]any{"id": i + 1, "name": fmt.Sprintf("user-%03d", i+1)},
			},
			"trigger": map[string]any{"name": trigger},
		})
		ev.payload = string(body)
	}
	return ev
}

func responseBody(status int) string {
	if status == 200 {
		return `{"ok":true}`
	}
	return `{"error":"upstream returned 500"}`
}
