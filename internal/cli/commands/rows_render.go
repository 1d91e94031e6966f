package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/internal/cli/output"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"gopkg.in/yaml.v3"
)

// Row output formats.
const (
	formatTable    = "table"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatCSV      = "csv"
	formatMarkdown = "md"
)

var rowFormats = []string{formatTable, formatJSON, formatYAML, formatCSV, formatMarkdown}

// rowsOutput is the machine-readable form of one page.
type rowsOutput struct {
	View       string           `json:"view" yaml:"view"`
	Table      string           `json:"table" yaml:"table"`
	Columns    []string         `json:"columns" yaml:"columns"`
	Rows       []map[string]any `json:"rows" yaml:"rows"`
	TotalCount int              `json:"total_count" yaml:"total_count"`
	Page       int              `json:"page" yaml:"page"`
	PageCount  int              `json:"page_count" yaml:"page_count"`
	Limit      int              `json:"limit" yaml:"limit"`
	Offset     int              `json:"offset" yaml:"offset"`
}

// renderOptions control how a page is written.
type renderOptions struct {
	Format string
	Full   bool // show full values instead of collapsed ones
	Styled bool // italicise NULL cells
}

// resolveFormat maps the --format flag, falling back to the renderer mode.
func resolveFormat(flag string, r *output.Renderer) (string, error) {
	switch strings.ToLower(flag) {
	case "":
		switch r.EffectiveMode() {
		case output.ModeJSON:
			return formatJSON, nil
		case output.ModeMarkdown:
			return formatMarkdown, nil
		default:
			return formatTable, nil
		}
	case "markdown":
		return formatMarkdown, nil
	case formatTable, formatJSON, formatYAML, formatCSV, formatMarkdown:
		return strings.ToLower(flag), nil
	default:
		return "", fmt.Errorf("unknown format %q (want one of %s)", flag, strings.Join(rowFormats, ", "))
	}
}

func renderRows(w io.Writer, v browse.ViewState, expanded *browse.CellRef, opts renderOptions) error {
	switch opts.Format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newRowsOutput(v))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newRowsOutput(v)); err != nil {
			return err
		}
		return enc.Close()
	case formatCSV:
		return renderCSV(w, v)
	case formatMarkdown:
		return renderMarkdown(w, v, expanded, opts)
	default:
		return renderTable(w, v, expanded, opts)
	}
}

func newRowsOutput(v browse.ViewState) rowsOutput {
	p := v.Pagination()
	rows := make([]map[string]any, len(v.Rows))
	for i, row := range v.Rows {
		out := make(map[string]any, len(v.Columns))
		for _, col := range v.Columns {
			if val, ok := row.Lookup(col); ok {
				out[col] = exportValue(val)
			}
		}
		rows[i] = out
	}
	return rowsOutput{
		View:       v.Key,
		Table:      v.Table,
		Columns:    v.Columns,
		Rows:       rows,
		TotalCount: v.TotalCount,
		Page:       p.CurrentPage + 1,
		PageCount:  p.PageCount,
		Limit:      v.Filter.Limit,
		Offset:     v.Filter.Offset,
	}
}

// exportValue turns driver values into plain data for JSON and YAML.
func exportValue(v any) any {
	switch val := v.(type) {
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return string(val)
		}
		return decoded
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}

func cellText(c browse.Cell, opts renderOptions) string {
	s := c.Display()
	if opts.Full {
		s = c.Text
	}
	if c.Kind == browse.KindNull && opts.Styled {
		return text.Italic.Sprint(s)
	}
	return s
}

func renderTable(w io.Writer, v browse.ViewState, expanded *browse.CellRef, opts renderOptions) error {
	rendered := v.Render(expanded)
	if rendered.Empty() {
		_, _ = fmt.Fprintln(w, browse.EmptyText)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"#"}
	for _, col := range rendered.Columns {
		header = append(header, col)
	}
	t.AppendHeader(header)

	for _, row := range rendered.Rows {
		tr := table.Row{v.Filter.Offset + row.Index + 1}
		for _, c := range row.Cells {
			tr = append(tr, cellText(c, opts))
		}
		t.AppendRow(tr)
	}
	t.Render()

	_, _ = fmt.Fprintln(w, footer(v))
	return nil
}

func renderMarkdown(w io.Writer, v browse.ViewState, expanded *browse.CellRef, opts renderOptions) error {
	rendered := v.Render(expanded)
	if rendered.Empty() {
		_, _ = fmt.Fprintln(w, browse.EmptyText)
		return nil
	}

	rows := make([][]string, len(rendered.Rows))
	for i, row := range rendered.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = cellText(c, renderOptions{Full: opts.Full})
		}
		rows[i] = cells
	}
	_, _ = fmt.Fprintln(w, output.FormatTable(rendered.Columns, rows))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, footer(v))
	return nil
}

func renderCSV(w io.Writer, v browse.ViewState) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Columns); err != nil {
		return err
	}
	for _, row := range v.Rows {
		record := make([]string, len(v.Columns))
		for i, col := range v.Columns {
			val, ok := row.Lookup(col)
			if !ok || val == nil {
				continue
			}
			record[i], _ = browse.FormatValue(val, false)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// footer summarises the visible range and page position.
func footer(v browse.ViewState) string {
	p := v.Pagination()
	s := p.Summary()
	if p.Visible() {
		s += fmt.Sprintf(" (page %d of %d)", p.CurrentPage+1, p.PageCount)
	}
	if sort, dir, ok := v.SortKey(); ok {
		s += fmt.Sprintf(", sorted by %s %s", sort, dir)
	}
	return s
}

// describeSchema renders a table schema as column rows.
func describeSchema(r *output.Renderer, v browse.ViewState) error {
	if v.Schema == nil {
		return fmt.Errorf("view %q has no schema", v.Name)
	}
	pks := make(map[string]bool, len(v.PrimaryKeys))
	for _, k := range v.PrimaryKeys {
		pks[k] = true
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(v.Schema)
	}

	kind := "Table"
	if v.Schema.IsView {
		kind = "View"
	}
	r.Header(2, fmt.Sprintf("%s: %s", kind, v.Table))
	r.KeyValue("view", v.Name)
	r.KeyValue("read only", fmt.Sprintf("%t", v.ReadOnly || len(v.PrimaryKeys) == 0))
	r.KeyValue("rows", fmt.Sprintf("%d", v.TotalCount))

	rows := make([][]string, 0, len(v.Schema.Columns))
	for _, c := range v.Schema.Columns {
		nullable := "YES"
		if !c.Nullable {
			nullable = "NO"
		}
		key := ""
		if pks[c.Name] {
			key = "PK"
		}
		rows = append(rows, []string{c.Name, c.Type, nullable, key})
	}
	r.Table([]string{"Column", "Type", "Nullable", "Key"}, rows)
	return nil
}

// clauseSummary renders the active where-clauses for the shell prompt.
func clauseSummary(f core.FilterState) string {
	active := f.ActiveWhere()
	if len(active) == 0 {
		return ""
	}
	parts := make([]string, len(active))
	for i, c := range active {
		parts[i] = fmt.Sprintf("%s %s %s", c.Column, c.Operator, c.Value)
	}
	return strings.Join(parts, " AND ")
}
