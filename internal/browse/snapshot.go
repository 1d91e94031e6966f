package browse

import (
	"sort"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// ViewState is a copy of one open view, safe to read without the store lock.
type ViewState struct {
	Key         string
	Name        string
	Title       string
	Table       string
	RelName     string
	Depth       int
	Children    []string
	Hidden      bool
	Loading     bool
	Loaded      bool
	Err         error
	Filter      core.FilterState
	Columns     []string
	Rows        []core.Row
	TotalCount  int
	Schema      *core.TableSchema
	PrimaryKeys []string
	ReadOnly    bool
}

// Pagination derives the paging controls of the view.
func (v ViewState) Pagination() Pagination {
	return NewPagination(v.TotalCount, v.Filter.Limit, v.Filter.Offset)
}

// Render renders the current page with the given expanded cell.
func (v ViewState) Render(expanded *CellRef) Table {
	return Render(RenderInput{
		Entity:      v.Key,
		Columns:     v.Columns,
		Rows:        v.Rows,
		Schema:      v.Schema,
		PrimaryKeys: v.PrimaryKeys,
		ReadOnly:    v.ReadOnly,
		Expanded:    expanded,
	})
}

// Status returns the placeholder text for the table body, or "" when rows
// are shown. A load in progress takes precedence over an empty result.
func (v ViewState) Status() string {
	switch {
	case v.Loading && len(v.Rows) == 0:
		return LoadingText
	case v.Err != nil:
		return ""
	case v.Loaded && len(v.Rows) == 0:
		return EmptyText
	default:
		return ""
	}
}

// SortKey returns the primary sort column and direction, if any.
func (v ViewState) SortKey() (string, core.Direction, bool) {
	p := v.Filter.Primary()
	if p.IsEmpty() {
		return "", "", false
	}
	return p.Column, p.Direction, true
}

// View returns a snapshot of the open view with the given key.
func (s *Store) View(key string) (ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		return ViewState{}, &UnknownViewError{Name: key}
	}
	return v.snapshot(), nil
}

// Tree returns snapshots of the view with the given key and all its
// relation views, parents before children.
func (s *Store) Tree(key string) ([]ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[key]; !ok {
		return nil, &UnknownViewError{Name: key}
	}
	var out []ViewState
	var walk func(string)
	walk = func(k string) {
		v, ok := s.views[k]
		if !ok {
			return
		}
		out = append(out, v.snapshot())
		for _, c := range v.children {
			walk(c)
		}
	}
	walk(key)
	return out, nil
}

func (v *view) snapshot() ViewState {
	st := ViewState{
		Key:         v.key,
		Name:        v.def.Name,
		Title:       v.def.DisplayTitle(),
		Table:       v.def.Table,
		RelName:     v.relName,
		Depth:       v.depth,
		Children:    append([]string(nil), v.children...),
		Hidden:      v.hidden,
		Loading:     v.loading,
		Loaded:      v.loaded,
		Err:         v.err,
		Filter:      v.filter.Clone(),
		Columns:     append([]string(nil), v.columns...),
		Schema:      v.schema,
		PrimaryKeys: append([]string(nil), v.pks...),
		ReadOnly:    v.def.ReadOnly,
	}
	if v.result != nil {
		st.Rows = v.result.Rows
		st.TotalCount = v.result.TotalCount
	}
	return st
}

func sortViews(defs []core.ViewConfig) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
}
