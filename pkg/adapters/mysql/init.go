// Package mysql provides a MySQL database adapter for rowbrowse.
//
// This file registers the MySQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/rowbrowse/pkg/adapters/mysql"
package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
)

func init() {
	adapter.RegisterDialect(Dialect)
	adapter.Register("mysql", func(l *slog.Logger) adapter.Adapter { return New(l) })
}
