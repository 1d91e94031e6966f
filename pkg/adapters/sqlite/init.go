// Package sqlite provides a SQLite database adapter for rowbrowse.
//
// This file registers the SQLite adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/rowbrowse/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
)

func init() {
	adapter.RegisterDialect(Dialect)
	adapter.Register("sqlite", func(l *slog.Logger) adapter.Adapter { return New(l) })
}
