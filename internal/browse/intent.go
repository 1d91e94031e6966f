package browse

import (
	"fmt"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// Intent is a request to change a view. Filter intents are applied by Reduce;
// RunQuery, DeleteRow, ExpandCell and CollapseCell are effects handled by the
// Store.
type Intent interface {
	intent()
}

// SetColumn sets the column of the order-by entry at Index.
type SetColumn struct {
	Column string
	Index  int
}

// SetDirection sets the direction of the order-by entry at Index.
type SetDirection struct {
	Direction core.Direction
	Index     int
}

// RemoveOrderClause removes the order-by entry at Index.
type RemoveOrderClause struct {
	Index int
}

// AddOrderClause appends an empty order-by entry.
type AddOrderClause struct{}

// SetOffset sets the row offset. Negative values clamp to zero.
type SetOffset struct {
	N int
}

// SetLimit sets the page size. Non-positive values are ignored.
type SetLimit struct {
	N int
}

// SetWhereColumn sets the column of the where-clause at Index.
type SetWhereColumn struct {
	Column string
	Index  int
}

// SetWhereOperator sets the operator of the where-clause at Index.
type SetWhereOperator struct {
	Operator core.Operator
	Index    int
}

// SetWhereValue sets the value of the where-clause at Index.
type SetWhereValue struct {
	Value string
	Index int
}

// AddWhereClause appends an empty where-clause.
type AddWhereClause struct{}

// RemoveWhereClause removes the where-clause at Index. Removing the last
// clause leaves one empty clause behind.
type RemoveWhereClause struct {
	Index int
}

// RunQuery re-fetches the view with its current filter state.
type RunQuery struct{}

// DeleteRow deletes the row identified by PK and re-fetches.
type DeleteRow struct {
	PK core.PrimaryKeyClause
}

// ExpandCell makes Ref the single expanded cell.
type ExpandCell struct {
	Ref CellRef
}

// CollapseCell clears the expanded cell.
type CollapseCell struct{}

func (SetColumn) intent()         {}
func (SetDirection) intent()      {}
func (RemoveOrderClause) intent() {}
func (AddOrderClause) intent()    {}
func (SetOffset) intent()         {}
func (SetLimit) intent()          {}
func (SetWhereColumn) intent()    {}
func (SetWhereOperator) intent()  {}
func (SetWhereValue) intent()     {}
func (AddWhereClause) intent()    {}
func (RemoveWhereClause) intent() {}
func (RunQuery) intent()          {}
func (DeleteRow) intent()         {}
func (ExpandCell) intent()        {}
func (CollapseCell) intent()      {}

// Reduce applies a filter intent to f and returns the new state. f is not
// modified. Intents that are not filter intents, and intents with an
// out-of-range index, return f unchanged.
func Reduce(f core.FilterState, in Intent) core.FilterState {
	next := f.Clone()
	switch in := in.(type) {
	case SetColumn:
		if in.Index < 0 || in.Index >= len(next.OrderBy) {
			return f
		}
		next.OrderBy[in.Index].Column = in.Column
	case SetDirection:
		if in.Index < 0 || in.Index >= len(next.OrderBy) || !in.Direction.Valid() {
			return f
		}
		next.OrderBy[in.Index].Direction = in.Direction
	case RemoveOrderClause:
		if in.Index < 0 || in.Index >= len(next.OrderBy) {
			return f
		}
		next.OrderBy = append(next.OrderBy[:in.Index], next.OrderBy[in.Index+1:]...)
	case AddOrderClause:
		next.OrderBy = append(next.OrderBy, core.EmptyOrderBy())
	case SetOffset:
		next.Offset = max(in.N, 0)
	case SetLimit:
		if in.N <= 0 {
			return f
		}
		next.Limit = in.N
	case SetWhereColumn:
		if in.Index < 0 || in.Index >= len(next.Where) {
			return f
		}
		next.Where[in.Index].Column = in.Column
	case SetWhereOperator:
		if in.Index < 0 || in.Index >= len(next.Where) {
			return f
		}
		next.Where[in.Index].Operator = in.Operator
	case SetWhereValue:
		if in.Index < 0 || in.Index >= len(next.Where) {
			return f
		}
		next.Where[in.Index].Value = in.Value
	case AddWhereClause:
		next.Where = append(next.Where, core.EmptyClause())
	case RemoveWhereClause:
		if in.Index < 0 || in.Index >= len(next.Where) {
			return f
		}
		next.Where = append(next.Where[:in.Index], next.Where[in.Index+1:]...)
		if len(next.Where) == 0 {
			next.Where = []core.Clause{core.EmptyClause()}
		}
	default:
		return f
	}
	return next
}

// SortByColumnIntents returns the intent sequence for a header click on col:
// drop every order-by entry but the first, reset the offset, set the first
// entry's column and direction, run the query, then append an empty entry.
// The direction flips to descending only when col is already the ascending
// primary key.
func SortByColumnIntents(f core.FilterState, col string) []Intent {
	var intents []Intent
	for i := len(f.OrderBy) - 1; i >= 1; i-- {
		intents = append(intents, RemoveOrderClause{Index: i})
	}

	dir := core.Asc
	if len(f.OrderBy) > 0 && f.OrderBy[0].Column == col && f.OrderBy[0].Direction == core.Asc {
		dir = core.Desc
	}

	if len(f.OrderBy) == 0 {
		intents = append(intents, AddOrderClause{})
	}
	return append(intents,
		SetOffset{N: 0},
		SetColumn{Column: col, Index: 0},
		SetDirection{Direction: dir, Index: 0},
		RunQuery{},
		AddOrderClause{},
	)
}

// ChangePageIntents returns the intents moving to page, or nil when the
// offset would not change.
func ChangePageIntents(f core.FilterState, page int) []Intent {
	if page < 0 {
		page = 0
	}
	offset := page * f.Limit
	if offset == f.Offset {
		return nil
	}
	return []Intent{SetOffset{N: offset}, RunQuery{}}
}

// ChangePageSizeIntents returns the intents switching to size rows per page,
// or nil when size equals the current limit.
func ChangePageSizeIntents(f core.FilterState, size int) []Intent {
	if size == f.Limit || size <= 0 {
		return nil
	}
	return []Intent{SetLimit{N: size}, RunQuery{}}
}

// SetWhereIntents returns the intents filtering by c. The clause on the same
// column is replaced, else the first empty clause is filled, else a clause
// is added. The offset resets to the first page.
func SetWhereIntents(f core.FilterState, c core.Clause) []Intent {
	idx := -1
	for i, w := range f.Where {
		if w.Column == c.Column {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, w := range f.Where {
			if w.IsEmpty() {
				idx = i
				break
			}
		}
	}

	var intents []Intent
	if idx < 0 {
		idx = len(f.Where)
		intents = append(intents, AddWhereClause{})
	}
	return append(intents,
		SetWhereColumn{Column: c.Column, Index: idx},
		SetWhereOperator{Operator: c.Operator, Index: idx},
		SetWhereValue{Value: c.Value, Index: idx},
		SetOffset{N: 0},
		RunQuery{},
	)
}

// RemoveWhereIntents returns the intents dropping the where-clause at index
// and re-running from the first page, or nil when index is out of range.
func RemoveWhereIntents(f core.FilterState, index int) []Intent {
	if index < 0 || index >= len(f.Where) {
		return nil
	}
	return []Intent{RemoveWhereClause{Index: index}, SetOffset{N: 0}, RunQuery{}}
}

// ClearWhereIntents returns the intents dropping every where-clause and
// re-running from the first page.
func ClearWhereIntents(f core.FilterState) []Intent {
	intents := make([]Intent, 0, len(f.Where)+2)
	for i := len(f.Where) - 1; i >= 0; i-- {
		intents = append(intents, RemoveWhereClause{Index: i})
	}
	return append(intents, SetOffset{N: 0}, RunQuery{})
}

// Describe returns a short text form of an intent, used in logs and the shell.
func Describe(in Intent) string {
	switch in := in.(type) {
	case SetColumn:
		return fmt.Sprintf("setColumn(%s, %d)", in.Column, in.Index)
	case SetDirection:
		return fmt.Sprintf("setDirection(%s, %d)", in.Direction, in.Index)
	case RemoveOrderClause:
		return fmt.Sprintf("removeOrderClause(%d)", in.Index)
	case AddOrderClause:
		return "addOrderClause()"
	case SetOffset:
		return fmt.Sprintf("setOffset(%d)", in.N)
	case SetLimit:
		return fmt.Sprintf("setLimit(%d)", in.N)
	case SetWhereColumn:
		return fmt.Sprintf("setWhereColumn(%s, %d)", in.Column, in.Index)
	case SetWhereOperator:
		return fmt.Sprintf("setWhereOperator(%s, %d)", in.Operator, in.Index)
	case SetWhereValue:
		return fmt.Sprintf("setWhereValue(%q, %d)", in.Value, in.Index)
	case AddWhereClause:
		return "addWhereClause()"
	case RemoveWhereClause:
		return fmt.Sprintf("removeWhereClause(%d)", in.Index)
	case RunQuery:
		return "runQuery()"
	case DeleteRow:
		return fmt.Sprintf("deleteRow(%s)", in.PK)
	case ExpandCell:
		return fmt.Sprintf("expandCell(%s)", in.Ref)
	case CollapseCell:
		return "collapseCell()"
	default:
		return fmt.Sprintf("%T", in)
	}
}
