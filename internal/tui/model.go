// Package tui is the terminal row browser.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
)

// chromeHeight is the number of lines around the table.
const chromeHeight = 9

// loadedMsg carries the view tree once no fetch is in flight.
type loadedMsg struct {
	tree []browse.ViewState
	err  error
}

// Model is the bubbletea model of one open view and its relation views.
type Model struct {
	ctx   context.Context
	store *browse.Store
	root  string

	// focus is the key of the view the table shows.
	focus string
	tree  []browse.ViewState
	col   int

	keys    KeyMap
	table   table.Model
	spinner spinner.Model
	help    help.Model

	loading  bool
	confirm  *browse.DeleteAction
	status   string
	err      error
	width    int
	height   int
	quitting bool
}

// New creates a model browsing the open view root of store.
func New(ctx context.Context, store *browse.Store, root string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.spinner

	t := table.New(table.WithFocused(true), table.WithHeight(10))
	ts := table.DefaultStyles()
	ts.Header = ts.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	ts.Selected = ts.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(ts)

	return Model{
		ctx:     ctx,
		store:   store,
		root:    root,
		focus:   root,
		keys:    DefaultKeyMap(),
		table:   t,
		spinner: s,
		help:    help.New(),
		loading: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait())
}

// wait waits for the store to settle and snapshots the view tree.
func (m Model) wait() tea.Cmd {
	return func() tea.Msg {
		if err := m.store.Wait(m.ctx); err != nil {
			return loadedMsg{err: err}
		}
		tree, err := m.store.Tree(m.root)
		return loadedMsg{tree: tree, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tree = msg.tree
		m.syncTable()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		pk := m.confirm.PK
		m.confirm = nil
		if !key.Matches(msg, m.keys.Confirm) {
			m.status = "Delete cancelled"
			return m, nil
		}
		return m.dispatch(func() error {
			return m.store.Dispatch(m.ctx, m.focus, browse.DeleteRow{PK: pk})
		}, "Deleted "+pk.String())
	}

	m.status = ""
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
			m.syncTable()
		}
		return m, nil

	case key.Matches(msg, m.keys.Right):
		if m.col < len(m.current().Columns)-1 {
			m.col++
			m.syncTable()
		}
		return m, nil

	case key.Matches(msg, m.keys.Sort):
		cols := m.current().Columns
		if m.col >= len(cols) {
			return m, nil
		}
		col := cols[m.col]
		return m.dispatch(func() error {
			_, err := m.store.HeaderClick(m.ctx, m.focus, col)
			return err
		}, "")

	case key.Matches(msg, m.keys.NextPage):
		p := m.current().Pagination()
		if !p.HasNext() {
			return m, nil
		}
		return m.dispatch(func() error {
			_, err := m.store.ChangePage(m.ctx, m.focus, p.CurrentPage+1)
			return err
		}, "")

	case key.Matches(msg, m.keys.PrevPage):
		p := m.current().Pagination()
		if !p.HasPrev() {
			return m, nil
		}
		return m.dispatch(func() error {
			_, err := m.store.ChangePage(m.ctx, m.focus, p.CurrentPage-1)
			return err
		}, "")

	case key.Matches(msg, m.keys.Bigger), key.Matches(msg, m.keys.Smaller):
		size, ok := stepPageSize(m.current().Pagination(), key.Matches(msg, m.keys.Bigger))
		if !ok {
			return m, nil
		}
		return m.dispatch(func() error {
			_, err := m.store.ChangePageSize(m.ctx, m.focus, size)
			return err
		}, fmt.Sprintf("%d rows per page", size))

	case key.Matches(msg, m.keys.Refresh):
		return m.dispatch(func() error {
			return m.store.Dispatch(m.ctx, m.focus, browse.RunQuery{})
		}, "")

	case key.Matches(msg, m.keys.Clear):
		v := m.current()
		if len(v.Filter.ActiveWhere()) == 0 {
			return m, nil
		}
		intents := browse.ClearWhereIntents(v.Filter)
		return m.dispatch(func() error {
			return m.store.Dispatch(m.ctx, m.focus, intents...)
		}, "Filters cleared")

	case key.Matches(msg, m.keys.Expand):
		cell, ok := m.selectedCell()
		if !ok {
			return m, nil
		}
		if !cell.Expandable {
			m.status = "Cell is shown in full"
			return m, nil
		}
		m.store.ToggleCell(cell.Ref)
		m.syncTable()
		return m, nil

	case key.Matches(msg, m.keys.Collapse):
		if m.store.Expanded() != nil {
			_ = m.store.Dispatch(m.ctx, m.focus, browse.CollapseCell{})
			m.syncTable()
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		row, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		if row.Delete == nil {
			m.status = "Rows of this view cannot be deleted"
			return m, nil
		}
		m.confirm = row.Delete
		return m, nil

	case key.Matches(msg, m.keys.Relation):
		return m.nextRelation()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// dispatch runs a store action and waits for the fetches it starts.
func (m Model) dispatch(fn func() error, status string) (tea.Model, tea.Cmd) {
	if err := fn(); err != nil {
		if errors.Is(err, browse.ErrReadOnly) {
			m.status = "Rows of this view cannot be deleted"
			return m, nil
		}
		m.err = err
		return m, nil
	}
	m.status = status
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.wait())
}

// nextRelation moves the focus to the next relation of the root view,
// wrapping back to the root after the last one.
func (m Model) nextRelation() (tea.Model, tea.Cmd) {
	root := m.state(m.root)
	if len(root.Children) == 0 {
		m.status = "View has no relations"
		return m, nil
	}
	order := append([]string{m.root}, root.Children...)
	next := m.root
	for i, k := range order {
		if k == m.focus {
			next = order[(i+1)%len(order)]
			break
		}
	}

	m.focus = next
	m.col = 0
	if next == m.root {
		m.store.SetActivePath(nil)
	} else {
		m.store.SetActivePath([]string{m.root, m.state(next).RelName})
	}
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.wait())
}

// state returns the snapshot of the view with the given key.
func (m Model) state(k string) browse.ViewState {
	for _, v := range m.tree {
		if v.Key == k {
			return v
		}
	}
	return browse.ViewState{Key: k}
}

// current returns the snapshot of the focused view.
func (m Model) current() browse.ViewState {
	return m.state(m.focus)
}

func (m Model) rendered() browse.Table {
	return m.current().Render(m.store.Expanded())
}

func (m Model) selectedRow() (browse.RenderedRow, bool) {
	t := m.rendered()
	i := m.table.Cursor()
	if i < 0 || i >= len(t.Rows) {
		return browse.RenderedRow{}, false
	}
	return t.Rows[i], true
}

func (m Model) selectedCell() (browse.Cell, bool) {
	row, ok := m.selectedRow()
	if !ok || m.col >= len(row.Cells) {
		return browse.Cell{}, false
	}
	return row.Cells[m.col], true
}

// syncTable rebuilds the table from the focused view.
func (m *Model) syncTable() {
	v := m.current()
	t := v.Render(m.store.Expanded())
	if m.col >= len(t.Columns) {
		m.col = max(len(t.Columns)-1, 0)
	}
	sortCol, sortDir, sorted := v.SortKey()

	cols := make([]table.Column, len(t.Columns))
	for i, name := range t.Columns {
		title := name
		if sorted && name == sortCol {
			title += " " + arrow(sortDir)
		}
		if i == m.col {
			title = "[" + title + "]"
		}
		cols[i] = table.Column{Title: title, Width: lipgloss.Width(title)}
	}

	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(table.Row, len(r.Cells))
		for j, c := range r.Cells {
			text := c.Display()
			if c.Expanded {
				text = "(expanded)"
			}
			row[j] = text
			cols[j].Width = min(max(cols[j].Width, lipgloss.Width(text)), browse.ExpandThreshold+3)
		}
		rows[i] = row
	}

	cursor := m.table.Cursor()
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(min(max(cursor, 0), len(rows)-1))
	}
}

// stepPageSize returns the next larger or smaller page size.
func stepPageSize(p browse.Pagination, bigger bool) (int, bool) {
	sizes := p.PageSizes()
	for i, n := range sizes {
		if n != p.Limit {
			continue
		}
		if bigger && i+1 < len(sizes) {
			return sizes[i+1], true
		}
		if !bigger && i > 0 {
			return sizes[i-1], true
		}
		return 0, false
	}
	return 0, false
}

// Run browses the open view root until the user quits or ctx is done.
func Run(ctx context.Context, store *browse.Store, root string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(New(ctx, store, root), opts...).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}
