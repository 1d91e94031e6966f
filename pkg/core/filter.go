package core

import (
	"fmt"
	"strings"
)

// Direction is the sort direction of an order-by entry.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// NullsPosition controls where NULL values sort relative to other values.
type NullsPosition string

// Nulls positions.
const (
	NullsFirst NullsPosition = "first"
	NullsLast  NullsPosition = "last"
)

// Operator is a where-clause comparison operator.
type Operator string

// Where-clause operators understood by the adapters.
const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpGt     Operator = "$gt"
	OpLt     Operator = "$lt"
	OpGte    Operator = "$gte"
	OpLte    Operator = "$lte"
	OpLike   Operator = "$like"
	OpNLike  Operator = "$nlike"
	OpILike  Operator = "$ilike"
	OpNILike Operator = "$nilike"
	OpIn     Operator = "$in"
	OpNIn    Operator = "$nin"
	OpIsNull Operator = "$is_null"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpLt, OpGte, OpLte,
	OpLike, OpNLike, OpILike, OpNILike,
	OpIn, OpNIn, OpIsNull,
}

// ParseOperator resolves an operator from its "$op" or bare "op" spelling.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "", nil
	}
	if !strings.HasPrefix(s, "$") {
		s = "$" + s
	}
	for _, op := range Operators {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Clause is a single where-clause predicate.
//
// A clause with an empty Column is the "empty clause" placeholder: it is the
// blank editor row offered for typing a new filter and never constrains the
// query.
type Clause struct {
	Column   string   `json:"column" yaml:"column"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value" yaml:"value"`
}

// EmptyClause returns the placeholder where-clause.
func EmptyClause() Clause {
	return Clause{}
}

// IsEmpty reports whether c is the placeholder clause.
func (c Clause) IsEmpty() bool {
	return c.Column == "" || c.Operator == ""
}

// OrderBy is a single sort key.
//
// An entry with an empty Column is the "empty order-by" placeholder offered
// after the last real sort key; it is not sent to the backend.
type OrderBy struct {
	Column    string        `json:"column" yaml:"column"`
	Direction Direction     `json:"type" yaml:"type"`
	Nulls     NullsPosition `json:"nulls" yaml:"nulls"`
}

// EmptyOrderBy returns the placeholder order-by entry (ascending, nulls last).
func EmptyOrderBy() OrderBy {
	return OrderBy{Direction: Asc, Nulls: NullsLast}
}

// IsEmpty reports whether o is the placeholder entry.
func (o OrderBy) IsEmpty() bool {
	return o.Column == ""
}

// Default paging values.
const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// FilterState is the where/order/limit/offset state of one dataset view.
//
// Invariants: Limit > 0, Offset >= 0. OrderBy[0] is the primary sort key.
type FilterState struct {
	Where   []Clause  `json:"where" yaml:"where"`
	OrderBy []OrderBy `json:"order_by" yaml:"order_by"`
	Limit   int       `json:"limit" yaml:"limit"`
	Offset  int       `json:"offset" yaml:"offset"`
}

// DefaultFilterState returns a state holding one empty clause, one empty
// order-by entry, the default limit and offset zero.
func DefaultFilterState() FilterState {
	return FilterState{
		Where:   []Clause{EmptyClause()},
		OrderBy: []OrderBy{EmptyOrderBy()},
		Limit:   DefaultLimit,
		Offset:  DefaultOffset,
	}
}

// Clone returns a deep copy of the state.
func (f FilterState) Clone() FilterState {
	out := f
	out.Where = append([]Clause(nil), f.Where...)
	out.OrderBy = append([]OrderBy(nil), f.OrderBy...)
	return out
}

// Validate checks the state invariants.
func (f FilterState) Validate() error {
	if f.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", f.Limit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", f.Offset)
	}
	for i, o := range f.OrderBy {
		if !o.IsEmpty() && !o.Direction.Valid() {
			return fmt.Errorf("order_by[%d]: invalid direction %q", i, o.Direction)
		}
	}
	return nil
}

// ActiveWhere returns the non-placeholder where-clauses.
func (f FilterState) ActiveWhere() []Clause {
	var out []Clause
	for _, c := range f.Where {
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

// ActiveOrderBy returns the non-placeholder order-by entries, in order.
func (f FilterState) ActiveOrderBy() []OrderBy {
	var out []OrderBy
	for _, o := range f.OrderBy {
		if !o.IsEmpty() {
			out = append(out, o)
		}
	}
	return out
}

// Primary returns the first order-by entry, or the empty placeholder.
func (f FilterState) Primary() OrderBy {
	if len(f.OrderBy) == 0 {
		return EmptyOrderBy()
	}
	return f.OrderBy[0]
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
