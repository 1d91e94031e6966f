package browse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// ExpandThreshold is the display length, in runes, above which a cell is
// collapsed behind an expand toggle.
const ExpandThreshold = 20

// NullText is the display text of NULL and undefined cells.
const NullText = "NULL"

// CellKind tells a NULL value, an absent key and a real value apart.
// A string value "NULL" renders with the same text as a null cell but
// keeps KindValue.
type CellKind int

// Cell kinds.
const (
	KindValue CellKind = iota
	KindNull
	KindUndefined
)

func (k CellKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	default:
		return "value"
	}
}

// Cell is one rendered value.
type Cell struct {
	Ref        CellRef
	Text       string
	Kind       CellKind
	Expandable bool
	Expanded   bool
}

// Display returns the text to show: the full text when the cell is short or
// expanded, otherwise the first ExpandThreshold runes followed by "...".
func (c Cell) Display() string {
	if !c.Expandable || c.Expanded {
		return c.Text
	}
	return truncateRunes(c.Text, ExpandThreshold) + "..."
}

// DeleteAction is the row action carrying the primary-key clause of its row.
type DeleteAction struct {
	PK core.PrimaryKeyClause
}

// RenderedRow is one row of cells plus its optional delete action.
type RenderedRow struct {
	Index  int
	Cells  []Cell
	Delete *DeleteAction
}

// Table is the rendered form of one page of rows.
type Table struct {
	Entity  string
	Columns []string
	Rows    []RenderedRow
	// HasActions reports whether the action column is shown.
	HasActions bool
}

// Empty reports whether the page holds no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// RenderInput is everything the renderer needs for one view.
type RenderInput struct {
	Entity      string
	Columns     []string
	Rows        []core.Row
	Schema      *core.TableSchema
	PrimaryKeys []string
	ReadOnly    bool
	Expanded    *CellRef
}

// Render maps raw rows to display cells. It is a pure function of its input.
func Render(in RenderInput) Table {
	t := Table{
		Entity:     in.Entity,
		Columns:    in.Columns,
		HasActions: !in.ReadOnly && len(in.PrimaryKeys) > 0,
		Rows:       make([]RenderedRow, 0, len(in.Rows)),
	}

	jsonCols := make(map[string]bool, len(in.Columns))
	if in.Schema != nil {
		for _, c := range in.Schema.Columns {
			jsonCols[c.Name] = c.IsJSON()
		}
	}

	for i, raw := range in.Rows {
		r := RenderedRow{Index: i, Cells: make([]Cell, len(in.Columns))}
		for j, col := range in.Columns {
			ref := CellRef{Entity: in.Entity, Column: col, Row: i}
			v, ok := raw.Lookup(col)
			cell := Cell{Ref: ref}
			if !ok {
				cell.Text, cell.Kind = NullText, KindUndefined
			} else {
				cell.Text, cell.Kind = FormatValue(v, jsonCols[col])
			}
			cell.Expandable = cell.Kind == KindValue && utf8.RuneCountInString(cell.Text) > ExpandThreshold
			cell.Expanded = cell.Expandable && in.Expanded != nil && *in.Expanded == ref
			r.Cells[j] = cell
		}
		if t.HasActions {
			if pk, err := core.NewPrimaryKeyClause(raw, in.PrimaryKeys); err == nil {
				r.Delete = &DeleteAction{PK: pk}
			}
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// FormatValue renders a raw value. Objects, arrays and values of JSON-typed
// columns are serialized as compact JSON.
func FormatValue(v any, isJSON bool) (string, CellKind) {
	switch val := v.(type) {
	case nil:
		return NullText, KindNull
	case json.RawMessage:
		return compactJSON(val), KindValue
	case []byte:
		if isJSON {
			return compactJSON(val), KindValue
		}
		return string(val), KindValue
	case string:
		if isJSON {
			return compactJSON([]byte(val)), KindValue
		}
		return val, KindValue
	case bool:
		return strconv.FormatBool(val), KindValue
	case int:
		return strconv.Itoa(val), KindValue
	case int32:
		return strconv.FormatInt(int64(val), 10), KindValue
	case int64:
		return strconv.FormatInt(val, 10), KindValue
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), KindValue
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), KindValue
	case time.Time:
		return val.Format(time.RFC3339), KindValue
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val), KindValue
		}
		return string(b), KindValue
	case fmt.Stringer:
		return val.String(), KindValue
	default:
		return fmt.Sprint(val), KindValue
	}
}

func compactJSON(b []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return string(b)
	}
	return buf.String()
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
