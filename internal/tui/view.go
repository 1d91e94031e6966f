package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

var styles = struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	muted     lipgloss.Style
	err       lipgloss.Style
	warn      lipgloss.Style
	spinner   lipgloss.Style
	detail    lipgloss.Style
	null      lipgloss.Style
}{
	title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
	activeTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true),
	muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	err:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	spinner:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
	detail:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	null:      lipgloss.NewStyle().Italic(true),
}

func arrow(d core.Direction) string {
	if d == core.Desc {
		return "▼"
	}
	return "▲"
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	v := m.current()

	b.WriteString(m.titleLine(v))
	b.WriteString("\n")
	if where := whereLine(v.Filter); where != "" {
		b.WriteString(styles.muted.Render(where))
		b.WriteString("\n")
	}

	switch status := v.Status(); {
	case v.Err != nil:
		b.WriteString(styles.err.Render(v.Err.Error()))
	case status == browse.LoadingText:
		b.WriteString(m.spinner.View() + " " + status)
	case status == browse.EmptyText:
		b.WriteString(styles.muted.Render(status))
	case len(m.tree) == 0:
		b.WriteString(m.spinner.View() + " " + browse.LoadingText)
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	p := v.Pagination()
	footer := p.Summary()
	if p.Visible() {
		footer += fmt.Sprintf("  Page %d of %d  %d per page", p.CurrentPage+1, p.PageCount, p.Limit)
	}
	if m.loading && len(v.Rows) > 0 {
		footer += "  " + m.spinner.View()
	}
	b.WriteString(styles.muted.Render(footer))
	b.WriteString("\n")

	if detail := m.detail(); detail != "" {
		b.WriteString(detail)
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) titleLine(v browse.ViewState) string {
	root := m.state(m.root)
	title := root.Title
	if title == "" {
		title = m.root
	}
	if root.ReadOnly {
		title += " (read only)"
	}
	line := styles.title.Render(title)
	if len(root.Children) == 0 {
		return line
	}

	tabs := []string{tabStyle(v.Key == m.root).Render("rows")}
	for _, c := range root.Children {
		child := m.state(c)
		tabs = append(tabs, tabStyle(v.Key == c).Render(child.RelName))
	}
	return line + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func tabStyle(active bool) lipgloss.Style {
	if active {
		return styles.activeTab
	}
	return styles.tab
}

// whereLine describes the active where-clauses.
func whereLine(f core.FilterState) string {
	active := f.ActiveWhere()
	if len(active) == 0 {
		return ""
	}
	parts := make([]string, len(active))
	for i, c := range active {
		parts[i] = fmt.Sprintf("%s %s %s", c.Column, strings.TrimPrefix(string(c.Operator), "$"), c.Value)
	}
	return "where " + strings.Join(parts, " and ")
}

// detail shows the expanded cell in full below the table.
func (m Model) detail() string {
	ref := m.store.Expanded()
	if ref == nil || ref.Entity != m.focus {
		return ""
	}
	for _, r := range m.rendered().Rows {
		for _, c := range r.Cells {
			if c.Ref != *ref {
				continue
			}
			width := 0
			if m.width > 4 {
				width = m.width - 4
			}
			header := styles.muted.Render(fmt.Sprintf("%s, row %d", c.Ref.Column, c.Ref.Row+1))
			return styles.detail.Width(width).Render(header + "\n" + c.Text)
		}
	}
	return ""
}

func (m Model) statusLine() string {
	switch {
	case m.confirm != nil:
		return styles.warn.Render(fmt.Sprintf("Delete %s? (y/N)", m.confirm.PK))
	case m.err != nil:
		return styles.err.Render("Error: " + m.err.Error())
	case m.status != "":
		return styles.muted.Render(m.status)
	}
	if cell, ok := m.selectedCell(); ok && cell.Kind != browse.KindValue {
		return styles.null.Render(fmt.Sprintf("%s is %s", cell.Ref.Column, cell.Kind))
	}
	return ""
}
