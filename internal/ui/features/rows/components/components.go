// Package components renders the row browser's view sections.
package components

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PKParamPrefix prefixes the query parameters carrying a row's primary key
// on delete requests: pk.id=... per key column.
const PKParamPrefix = "pk."

// resizedClass marks a header whose column was resized since its last click.
const resizedClass = "resized"

var titleCaser = cases.Title(language.English)

// Writer accumulates markup and keeps the first write error.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes s unescaped.
func (h *Writer) Raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// Rawf writes formatted markup unescaped.
func (h *Writer) Rawf(format string, args ...any) {
	h.Raw(fmt.Sprintf(format, args...))
}

// Text writes s escaped.
func (h *Writer) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Err returns the first write error.
func (h *Writer) Err() error {
	return h.err
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// ViewID is the element id of a view's section.
func ViewID(key string) string {
	return "view-" + strings.ReplaceAll(key, "/", "--")
}

// APIURL builds the URL of a view action.
func APIURL(root, action string, params url.Values) string {
	u := "/api/views/" + url.PathEscape(root) + "/" + action
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// post is a datastar action posting to u.
func post(u string) string {
	return "@post('" + u + "')"
}

// ViewSection renders a root view and its relation views. Hidden relation
// views stay in the document with the hidden attribute.
// tree holds the root first, parents before children.
func ViewSection(root string, tree []browse.ViewState, expanded *browse.CellRef, activePath []string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := NewWriter(w)
		h.Rawf(`<section id="%s" class="view">`, ViewID(root))
		byKey := make(map[string]browse.ViewState, len(tree))
		for _, v := range tree {
			byKey[v.Key] = v
		}
		if len(tree) > 0 {
			writeView(h, root, tree[0], byKey, expanded, activePath)
		}
		h.Raw("</section>")
		return h.Err()
	})
}

func writeView(h *Writer, root string, v browse.ViewState, byKey map[string]browse.ViewState, expanded *browse.CellRef, activePath []string) {
	level := min(v.Depth+2, 6)
	hidden := ""
	if v.Hidden {
		hidden = " hidden"
	}
	h.Rawf(`<div id="%s-table" class="view-table depth-%d"%s><h%d>%s</h%d>`,
		ViewID(v.Key), v.Depth, hidden, level, esc(v.Title), level)

	if v.Depth == 0 {
		writeWhere(h, root, v)
	}

	switch status := v.Status(); {
	case v.Err != nil:
		h.Rawf(`<p class="error" role="alert">%s</p>`, esc(v.Err.Error()))
	case status == browse.LoadingText:
		h.Rawf(`<p class="loading">%s</p>`, esc(status))
	case status == browse.EmptyText:
		h.Rawf(`<p class="empty">%s</p>`, esc(status))
	default:
		writeTable(h, root, v, expanded)
		if v.Loading {
			h.Rawf(`<p class="loading">%s</p>`, esc(browse.LoadingText))
		}
	}
	writePagination(h, root, v)

	if len(v.Children) > 0 {
		writeRelationTabs(h, root, v, byKey, activePath)
		for _, c := range v.Children {
			if child, ok := byKey[c]; ok {
				writeView(h, root, child, byKey, expanded, activePath)
			}
		}
	}
	h.Raw("</div>")
}

func writeRelationTabs(h *Writer, root string, v browse.ViewState, byKey map[string]browse.ViewState, activePath []string) {
	h.Raw(`<nav class="relations">`)
	for _, c := range v.Children {
		child, ok := byKey[c]
		if !ok {
			continue
		}
		active := !child.Hidden
		path := append(append([]string(nil), prefix(activePath, child.Depth)...), child.RelName)
		if active {
			path = prefix(activePath, child.Depth)
		}
		u := APIURL(root, "rows", url.Values{"path": {strings.Join(path, ",")}})
		class := "tab"
		if active {
			class += " active"
		}
		h.Rawf(`<button class="%s" data-on:click="@get('%s')">%s</button>`,
			class, esc(u), esc(titleCaser.String(strings.ReplaceAll(child.RelName, "_", " "))))
	}
	h.Raw("</nav>")
}

// prefix returns the first n path entries, padding with empty entries.
func prefix(path []string, n int) []string {
	out := make([]string, n)
	copy(out, path)
	return out
}

func writeWhere(h *Writer, root string, v browse.ViewState) {
	active := v.Filter.ActiveWhere()
	if len(active) > 0 {
		h.Raw(`<ul class="clauses">`)
		for i, c := range v.Filter.Where {
			if c.IsEmpty() {
				continue
			}
			u := APIURL(root, "where", url.Values{"key": {v.Key}, "index": {strconv.Itoa(i)}})
			h.Rawf(`<li><code>%s %s %s</code> <button class="link" data-on:click="@delete('%s')">remove</button></li>`,
				esc(c.Column), esc(string(c.Operator)), esc(c.Value), esc(u))
		}
		h.Raw("</ul>")
	}

	u := APIURL(root, "where", url.Values{"key": {v.Key}})
	h.Raw(`<form class="where" data-signals="{column: '', operator: '$eq', value: ''}" `)
	h.Rawf(`data-on:submit__prevent="%s">`, esc(post(u)))
	h.Raw(`<select data-bind:column><option value="">column</option>`)
	for _, col := range v.Columns {
		h.Rawf(`<option value="%s">%s</option>`, esc(col), esc(col))
	}
	h.Raw(`</select><select data-bind:operator>`)
	for _, op := range core.Operators {
		h.Rawf(`<option value="%s">%s</option>`, esc(string(op)), esc(strings.TrimPrefix(string(op), "$")))
	}
	h.Raw(`</select><input type="text" placeholder="value" data-bind:value>`)
	h.Raw(`<button type="submit">Filter</button></form>`)
}

// sortAction posts a header click. A header marked resized by the column
// drag script sends resized=1 so the click that ends a resize does not sort.
func sortAction(u string) string {
	return "@post('" + u + "&resized=' + (el.classList.contains('" + resizedClass + "') ? 1 : 0)); " +
		"el.classList.remove('" + resizedClass + "')"
}

// DeleteURL is the delete action of a row, keyed by its primary-key clause.
func DeleteURL(root, key string, pk core.PrimaryKeyClause) string {
	params := url.Values{"key": {key}}
	for _, col := range pk.Columns() {
		params.Set(PKParamPrefix+col, fmt.Sprint(pk[col]))
	}
	return APIURL(root, "delete", params)
}

func writeTable(h *Writer, root string, v browse.ViewState, expanded *browse.CellRef) {
	t := v.Render(expanded)
	sortCol, sortDir, sorted := v.SortKey()

	h.Raw(`<table class="rows"><thead><tr>`)
	for _, col := range t.Columns {
		sortURL := APIURL(root, "sort", url.Values{"key": {v.Key}, "column": {col}})
		h.Rawf(`<th data-preserve-attr="class style" data-on:click="%s">%s`, esc(sortAction(sortURL)), esc(col))
		if sorted && sortCol == col {
			arrow := "▲"
			if sortDir == core.Desc {
				arrow = "▼"
			}
			h.Rawf(` <span class="sort">%s</span>`, arrow)
		}
		h.Raw(`<span class="resize" title="Drag to resize"></span></th>`)
	}
	if t.HasActions {
		h.Raw(`<th class="actions"></th>`)
	}
	h.Raw(`</tr></thead><tbody>`)

	for _, row := range t.Rows {
		h.Raw("<tr>")
		for _, c := range row.Cells {
			writeCell(h, root, v.Key, c)
		}
		if t.HasActions {
			h.Raw(`<td class="actions">`)
			if row.Delete != nil {
				u := DeleteURL(root, v.Key, row.Delete.PK)
				h.Rawf(`<button class="danger" data-on:click="confirm('Delete this row?') &amp;&amp; %s">Delete</button>`, esc(post(u)))
			}
			h.Raw("</td>")
		}
		h.Raw("</tr>")
	}
	h.Raw("</tbody></table>")
}

func writeCell(h *Writer, root, key string, c browse.Cell) {
	switch c.Kind {
	case browse.KindNull:
		h.Rawf(`<td class="null"><i>%s</i></td>`, browse.NullText)
		return
	case browse.KindUndefined:
		h.Rawf(`<td class="undefined">%s</td>`, browse.NullText)
		return
	}

	h.Raw("<td>")
	if c.Expanded {
		h.Rawf(`<pre class="expanded">%s</pre>`, esc(c.Display()))
	} else {
		h.Text(c.Display())
	}
	if c.Expandable {
		u := APIURL(root, "expand", url.Values{
			"key":    {key},
			"column": {c.Ref.Column},
			"row":    {strconv.Itoa(c.Ref.Row)},
		})
		label, title := "+", "Expand"
		if c.Expanded {
			label, title = "−", "Collapse"
		}
		h.Rawf(` <button class="toggle" title="%s" data-on:click="%s">%s</button>`, title, esc(post(u)), label)
	}
	h.Raw("</td>")
}

func writePagination(h *Writer, root string, v browse.ViewState) {
	p := v.Pagination()
	h.Rawf(`<div class="pagination"><span class="summary">%s</span>`, esc(p.Summary()))
	if p.Visible() {
		pageURL := func(page int) string {
			return APIURL(root, "page", url.Values{"key": {v.Key}, "page": {strconv.Itoa(page)}})
		}
		if p.HasPrev() {
			h.Rawf(`<button data-on:click="%s">Previous</button>`, esc(post(pageURL(p.CurrentPage-1))))
		} else {
			h.Raw(`<button disabled>Previous</button>`)
		}
		h.Rawf(` <span class="page">Page %d of %d</span> `, p.CurrentPage+1, p.PageCount)
		if p.HasNext() {
			h.Rawf(`<button data-on:click="%s">Next</button>`, esc(post(pageURL(p.CurrentPage+1))))
		} else {
			h.Raw(`<button disabled>Next</button>`)
		}

		limitURL := APIURL(root, "limit", url.Values{"key": {v.Key}})
		h.Rawf(` <select data-on:change="@post('%s&amp;size=' + el.value)">`, esc(limitURL))
		for _, n := range p.PageSizes() {
			selected := ""
			if n == p.Limit {
				selected = " selected"
			}
			h.Rawf(`<option value="%d"%s>%d rows</option>`, n, selected, n)
		}
		h.Raw("</select>")
	}
	h.Raw("</div>")
}
