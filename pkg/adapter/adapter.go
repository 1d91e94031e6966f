// Package adapter provides database adapter interfaces and implementations
// for rowbrowse's query-execution and schema-description services.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
//
// Core types (Config, Column, Metadata, Rows) are defined in pkg/core and
// re-exported here via type aliases.
package adapter

import (
	"context"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// Type aliases for the shared types defined in pkg/core.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata
)

// Adapter defines the interface that all database adapters must implement.
// It provides methods for connecting to databases, executing SQL, paging
// through filtered rows, describing tables and deleting rows by primary key.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows (e.g., INSERT, UPDATE, CREATE).
	Exec(ctx context.Context, sql string, args ...any) error

	// GetTableMetadata retrieves metadata for a specified table, including primary keys.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// LoadCSV loads data from a CSV file into a table.
	// If the table doesn't exist, it will be created.
	LoadCSV(ctx context.Context, tableName string, filePath string) error

	// Dialect returns the SQL dialect settings for this adapter.
	Dialect() *Dialect

	// Execute, Describe and DeleteRow serve the row browser.
	core.Backend
}
