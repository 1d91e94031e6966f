// Package duckdb provides a DuckDB database adapter for rowbrowse.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/rowbrowse/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
)

func init() {
	adapter.RegisterDialect(Dialect)
	adapter.Register("duckdb", func(l *slog.Logger) adapter.Adapter { return New(l) })
}
