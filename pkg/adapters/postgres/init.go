// Package postgres provides a PostgreSQL database adapter for rowbrowse.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/rowbrowse/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
)

func init() {
	adapter.RegisterDialect(Dialect)
	adapter.Register("postgres", func(l *slog.Logger) adapter.Adapter { return New(l) })
}
