// Package state persists browser state in SQLite: the filter state of each
// view and an audit log of deleted rows.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/rowbrowse/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// Deletion is one audited row deletion.
type Deletion struct {
	ID         string
	View       string
	Table      string
	PrimaryKey core.PrimaryKeyClause
	Affected   int64
	DeletedAt  time.Time
}

// SQLiteStore implements browse.Persister and browse.DeletionRecorder.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return err
	}
	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// LoadFilter returns the saved filter state of view.
func (s *SQLiteStore) LoadFilter(ctx context.Context, view string) (core.FilterState, bool, error) {
	if s.db == nil {
		return core.FilterState{}, false, fmt.Errorf("database not opened")
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT filter FROM view_states WHERE view = ?`, view).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FilterState{}, false, nil
	}
	if err != nil {
		return core.FilterState{}, false, fmt.Errorf("failed to load filter state: %w", err)
	}

	var f core.FilterState
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return core.FilterState{}, false, fmt.Errorf("failed to decode filter state for %s: %w", view, err)
	}
	return f, true, nil
}

// SaveFilter upserts the filter state of view.
func (s *SQLiteStore) SaveFilter(ctx context.Context, view string, f core.FilterState) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode filter state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO view_states (view, filter, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(view) DO UPDATE SET filter = excluded.filter, updated_at = excluded.updated_at`,
		view, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save filter state: %w", err)
	}
	return nil
}

// ResetFilter forgets the saved filter state of view.
func (s *SQLiteStore) ResetFilter(ctx context.Context, view string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM view_states WHERE view = ?`, view); err != nil {
		return fmt.Errorf("failed to reset filter state: %w", err)
	}
	return nil
}

// RecordDeletion appends a row deletion to the audit log.
func (s *SQLiteStore) RecordDeletion(ctx context.Context, view, table string, pk core.PrimaryKeyClause, affected int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	raw, err := json.Marshal(pk)
	if err != nil {
		return fmt.Errorf("failed to encode primary key: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO row_deletions (id, view, table_name, primary_key, affected, deleted_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), view, table, string(raw), affected, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record deletion: %w", err)
	}
	return nil
}

// ListDeletions returns the most recent deletions for view, newest first.
// An empty view lists deletions across all views.
func (s *SQLiteStore) ListDeletions(ctx context.Context, view string, limit int) ([]Deletion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, view, table_name, primary_key, affected, deleted_at
		FROM row_deletions
		WHERE ? = '' OR view = ?
		ORDER BY deleted_at DESC, rowid DESC
		LIMIT ?`, view, view, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deletions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Deletion
	for rows.Next() {
		var d Deletion
		var pk string
		if err := rows.Scan(&d.ID, &d.View, &d.Table, &pk, &d.Affected, &d.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deletion: %w", err)
		}
		if err := json.Unmarshal([]byte(pk), &d.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to decode primary key: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
