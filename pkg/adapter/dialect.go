package adapter

import (
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences the adapters care about.
type Dialect struct {
	// Name is the registry name of the dialect (duckdb, postgres, ...).
	Name string

	// DefaultSchema is used when a table reference is unqualified.
	DefaultSchema string

	// Placeholder is the bind-parameter style.
	Placeholder squirrel.PlaceholderFormat

	// Quote is the identifier quote character.
	Quote string

	// NullsOrdering reports support for "NULLS FIRST|LAST" in ORDER BY.
	NullsOrdering bool

	// ILike reports support for the ILIKE operator.
	ILike bool
}

// QuoteIdent quotes a possibly schema-qualified identifier.
func (d *Dialect) QuoteIdent(name string) string {
	q := d.Quote
	if q == "" {
		q = `"`
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// Builder returns a squirrel statement builder using the dialect's placeholders.
func (d *Dialect) Builder() squirrel.StatementBuilderType {
	ph := d.Placeholder
	if ph == nil {
		ph = squirrel.Question
	}
	return squirrel.StatementBuilder.PlaceholderFormat(ph)
}

var (
	dialectMu sync.RWMutex
	dialects  = make(map[string]*Dialect)
)

// RegisterDialect makes a dialect available to GetDialect under its Name.
func RegisterDialect(d *Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[d.Name] = d
}

// GetDialect looks up a registered dialect by name.
func GetDialect(name string) (*Dialect, bool) {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}
