package adapter

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// BuildSelect renders the page query for req.
func BuildSelect(d *Dialect, req core.QueryRequest) (string, []any, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table not specified")
	}
	if req.Limit <= 0 {
		return "", nil, fmt.Errorf("limit must be positive, got %d", req.Limit)
	}

	cols := []string{"*"}
	if len(req.Columns) > 0 {
		cols = make([]string, len(req.Columns))
		for i, c := range req.Columns {
			cols[i] = d.QuoteIdent(c)
		}
	}

	sb := d.Builder().Select(cols...).From(d.QuoteIdent(req.Table))
	where, err := wherePredicates(d, req.Where)
	if err != nil {
		return "", nil, err
	}
	for _, p := range where {
		sb = sb.Where(p)
	}
	for _, o := range req.OrderBy {
		sb = sb.OrderBy(orderExprs(d, o)...)
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	sb = sb.Limit(uint64(req.Limit)).Offset(uint64(offset))

	return sb.ToSql()
}

// BuildCount renders the total-count query for req's where-clauses.
func BuildCount(d *Dialect, req core.QueryRequest) (string, []any, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table not specified")
	}
	sb := d.Builder().Select("COUNT(*)").From(d.QuoteIdent(req.Table))
	where, err := wherePredicates(d, req.Where)
	if err != nil {
		return "", nil, err
	}
	for _, p := range where {
		sb = sb.Where(p)
	}
	return sb.ToSql()
}

// BuildDelete renders a DELETE restricted to the row identified by pk.
func BuildDelete(d *Dialect, table string, pk core.PrimaryKeyClause) (string, []any, error) {
	if table == "" {
		return "", nil, fmt.Errorf("table not specified")
	}
	if len(pk) == 0 {
		return "", nil, core.ErrNoPrimaryKey
	}
	eq := squirrel.Eq{}
	for _, col := range pk.Columns() {
		v := pk[col]
		if v == nil {
			return "", nil, fmt.Errorf("%w: nil value for %q", core.ErrNoPrimaryKey, col)
		}
		eq[d.QuoteIdent(col)] = v
	}
	return d.Builder().Delete(d.QuoteIdent(table)).Where(eq).ToSql()
}

func wherePredicates(d *Dialect, clauses []core.Clause) ([]squirrel.Sqlizer, error) {
	var preds []squirrel.Sqlizer
	for _, c := range clauses {
		if c.IsEmpty() {
			continue
		}
		p, err := predicate(d, c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func predicate(d *Dialect, c core.Clause) (squirrel.Sqlizer, error) {
	col := d.QuoteIdent(c.Column)
	switch c.Operator {
	case core.OpEq:
		return squirrel.Eq{col: c.Value}, nil
	case core.OpNe:
		return squirrel.NotEq{col: c.Value}, nil
	case core.OpGt:
		return squirrel.Gt{col: c.Value}, nil
	case core.OpLt:
		return squirrel.Lt{col: c.Value}, nil
	case core.OpGte:
		return squirrel.GtOrEq{col: c.Value}, nil
	case core.OpLte:
		return squirrel.LtOrEq{col: c.Value}, nil
	case core.OpLike:
		return squirrel.Like{col: c.Value}, nil
	case core.OpNLike:
		return squirrel.NotLike{col: c.Value}, nil
	case core.OpILike:
		if d.ILike {
			return squirrel.ILike{col: c.Value}, nil
		}
		return squirrel.Expr(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", col), c.Value), nil
	case core.OpNILike:
		if d.ILike {
			return squirrel.NotILike{col: c.Value}, nil
		}
		return squirrel.Expr(fmt.Sprintf("LOWER(%s) NOT LIKE LOWER(?)", col), c.Value), nil
	case core.OpIn:
		return squirrel.Eq{col: splitList(c.Value)}, nil
	case core.OpNIn:
		return squirrel.NotEq{col: splitList(c.Value)}, nil
	case core.OpIsNull:
		if strings.EqualFold(strings.TrimSpace(c.Value), "false") {
			return squirrel.NotEq{col: nil}, nil
		}
		return squirrel.Eq{col: nil}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q on column %q", c.Operator, c.Column)
	}
}

func orderExprs(d *Dialect, o core.OrderBy) []string {
	col := d.QuoteIdent(o.Column)
	dir := "ASC"
	if o.Direction == core.Desc {
		dir = "DESC"
	}
	nulls := o.Nulls
	if nulls == "" {
		nulls = core.NullsLast
	}

	if d.NullsOrdering {
		return []string{fmt.Sprintf("%s %s NULLS %s", col, dir, strings.ToUpper(string(nulls)))}
	}

	// Emulate NULLS FIRST/LAST with a leading IS NULL key.
	nullKey := "ASC"
	if nulls == core.NullsFirst {
		nullKey = "DESC"
	}
	return []string{
		fmt.Sprintf("%s IS NULL %s", col, nullKey),
		fmt.Sprintf("%s %s", col, dir),
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
