package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoPrimaryKey is returned when a row cannot be identified by primary key.
var ErrNoPrimaryKey = errors.New("no primary key")

// Row maps column names to raw values.
//
// A column missing from the map is undefined; a column present with a nil
// value is NULL. Renderers treat the two differently.
type Row map[string]any

// Lookup returns the value of col and whether the column is present.
func (r Row) Lookup(col string) (any, bool) {
	v, ok := r[col]
	return v, ok
}

// PrimaryKeyClause maps primary-key columns to the values identifying a row.
type PrimaryKeyClause map[string]any

// NewPrimaryKeyClause builds the clause identifying row by the given keys.
// Returns ErrNoPrimaryKey when keys is empty or the row lacks one of them.
func NewPrimaryKeyClause(row Row, keys []string) (PrimaryKeyClause, error) {
	if len(keys) == 0 {
		return nil, ErrNoPrimaryKey
	}
	pk := make(PrimaryKeyClause, len(keys))
	for _, k := range keys {
		v, ok := row[k]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: column %q missing from row", ErrNoPrimaryKey, k)
		}
		pk[k] = v
	}
	return pk, nil
}

// Columns returns the clause's column names, sorted.
func (pk PrimaryKeyClause) Columns() []string {
	cols := make([]string, 0, len(pk))
	for c := range pk {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// String renders the clause as "col=value, ..." in column order.
func (pk PrimaryKeyClause) String() string {
	parts := make([]string, 0, len(pk))
	for _, c := range pk.Columns() {
		parts = append(parts, fmt.Sprintf("%s=%v", c, pk[c]))
	}
	return strings.Join(parts, ", ")
}

// ParsePrimaryKeyClause parses "col=value" pairs into a clause.
func ParsePrimaryKeyClause(pairs []string) (PrimaryKeyClause, error) {
	if len(pairs) == 0 {
		return nil, ErrNoPrimaryKey
	}
	pk := make(PrimaryKeyClause, len(pairs))
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid primary key pair %q (want column=value)", p)
		}
		pk[col] = strings.TrimSpace(val)
	}
	return pk, nil
}
