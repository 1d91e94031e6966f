package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/internal/cli/output"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/spf13/cobra"
)

// ShellOptions holds options for the shell command.
type ShellOptions struct {
	Full bool
}

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	opts := &ShellOptions{}

	cmd := &cobra.Command{
		Use:   "shell [view]",
		Short: "Browse a view interactively",
		Long: `Start an interactive shell on a view. Each dot-command changes the
view's filter state and prints the refreshed page.

Filter state is saved to the state database and restored the next time the
view is opened.`,
		Example: `  rowbrowse shell event_logs
  rowbrowse shell --database hooks.db --db-type sqlite`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeViews,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := ""
			if len(args) > 0 {
				view = args[0]
			}
			return runShell(cmd, view, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Full, "full", false, "Show full cell values")
	return cmd
}

func runShell(cmd *cobra.Command, view string, opts *ShellOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if view == "" {
		names := cmdCtx.Cfg.ViewNames()
		if len(names) == 0 {
			return fmt.Errorf("no views configured")
		}
		view = names[0]
	}

	store, err := cmdCtx.NewBrowseStore(cmdCtx.Cfg.UI.PersistState)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	sh := newShell(store, cmd.OutOrStdout(), cmd.ErrOrStderr(), renderOptions{
		Format: formatTable,
		Full:   opts.Full,
		Styled: cmdCtx.Renderer.Styled(),
	})
	sh.renderer = cmdCtx.Renderer
	if err := sh.open(ctx, view); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.prompt(),
		HistoryFile:     filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "shell_history"),
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rowbrowse shell (%s on %s)\n", view, cmdCtx.Cfg.Target.Type)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	sh.show()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if quit := sh.exec(ctx, line); quit {
			break
		}
		rl.SetPrompt(sh.prompt())
	}
	return nil
}

// shell executes dot-commands against one open view of a store.
type shell struct {
	store    *browse.Store
	out      io.Writer
	errOut   io.Writer
	opts     renderOptions
	renderer *output.Renderer

	root    string
	current string
}

func newShell(store *browse.Store, out, errOut io.Writer, opts renderOptions) *shell {
	return &shell{store: store, out: out, errOut: errOut, opts: opts}
}

// open mounts view and makes it the current view.
func (s *shell) open(ctx context.Context, view string) error {
	key, err := openView(ctx, s.store, view)
	if err != nil {
		return err
	}
	s.root, s.current = key, key
	s.store.SetActivePath(nil)
	return nil
}

func (s *shell) prompt() string {
	v, err := s.store.View(s.current)
	if err != nil {
		return "rowbrowse> "
	}
	name := s.current
	if where := clauseSummary(v.Filter); where != "" {
		name += " [" + where + "]"
	}
	return name + "> "
}

// exec runs one input line. It reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]
	rest := strings.TrimSpace(line[len(parts[0]):])

	if command == ".quit" || command == ".exit" {
		return true
	}

	refresh, err := s.dispatch(ctx, command, args, rest)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return false
	}
	if refresh {
		if err := s.store.Wait(ctx); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		s.show()
	}
	return false
}

// dispatch handles a command and reports whether the page should be shown.
// rest is the unsplit argument text.
func (s *shell) dispatch(ctx context.Context, command string, args []string, rest string) (bool, error) {
	switch command {
	case ".help":
		printShellHelp(s.out)
		return false, nil

	case ".views":
		for _, d := range s.store.Definitions() {
			_, _ = fmt.Fprintf(s.out, "  %-20s %s\n", d.Name, d.DisplayTitle())
		}
		return false, nil

	case ".open":
		if len(args) != 1 {
			return false, errors.New("usage: .open <view>")
		}
		return true, s.open(ctx, args[0])

	case ".show":
		return true, nil

	case ".refresh":
		return true, s.store.Dispatch(ctx, s.current, browse.RunQuery{})

	case ".sort":
		if len(args) != 1 {
			return false, errors.New("usage: .sort <column>")
		}
		return true, s.store.SortByColumn(ctx, s.current, args[0])

	case ".page":
		if len(args) != 1 {
			return false, errors.New("usage: .page <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return false, fmt.Errorf("invalid page %q", args[0])
		}
		return s.changePage(ctx, n-1)

	case ".next", ".prev":
		v, err := s.store.View(s.current)
		if err != nil {
			return false, err
		}
		p := v.Pagination()
		switch {
		case command == ".next" && p.HasNext():
			return s.changePage(ctx, p.CurrentPage+1)
		case command == ".prev" && p.HasPrev():
			return s.changePage(ctx, p.CurrentPage-1)
		}
		_, _ = fmt.Fprintln(s.out, "No more pages.")
		return false, nil

	case ".limit":
		if len(args) != 1 {
			return false, errors.New("usage: .limit <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return false, fmt.Errorf("invalid page size %q", args[0])
		}
		changed, err := s.store.ChangePageSize(ctx, s.current, n)
		if err == nil && !changed {
			_, _ = fmt.Fprintf(s.out, "Page size is already %d.\n", n)
		}
		return changed, err

	case ".where":
		c, err := parseShellWhere(rest)
		if err != nil {
			return false, err
		}
		v, err := s.store.View(s.current)
		if err != nil {
			return false, err
		}
		return true, s.store.Dispatch(ctx, s.current, browse.SetWhereIntents(v.Filter, c)...)

	case ".clear-where":
		v, err := s.store.View(s.current)
		if err != nil {
			return false, err
		}
		return true, s.store.Dispatch(ctx, s.current, browse.ClearWhereIntents(v.Filter)...)

	case ".expand":
		ref, err := s.cellRef(args)
		if err != nil {
			return false, err
		}
		s.store.ToggleCell(ref)
		return true, nil

	case ".collapse":
		return true, s.store.Dispatch(ctx, s.current, browse.CollapseCell{})

	case ".delete":
		if len(args) != 1 {
			return false, errors.New("usage: .delete <row>")
		}
		pk, err := s.rowKey(args[0])
		if err != nil {
			return false, err
		}
		if err := s.store.Dispatch(ctx, s.current, browse.DeleteRow{PK: pk}); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(s.out, "Deleted %s\n", pk)
		return true, nil

	case ".rel":
		return true, s.selectRelation(args)

	case ".describe":
		v, err := s.store.View(s.current)
		if err != nil {
			return false, err
		}
		r := s.renderer
		if r == nil {
			r = output.NewRendererWithTTY(s.out, s.errOut, false, output.ModeText)
		}
		return false, describeSchema(r, v)

	default:
		return false, fmt.Errorf("unknown command: %s (type .help for commands)", command)
	}
}

func (s *shell) changePage(ctx context.Context, page int) (bool, error) {
	changed, err := s.store.ChangePage(ctx, s.current, page)
	if err == nil && !changed {
		_, _ = fmt.Fprintln(s.out, "Already on that page.")
	}
	return changed, err
}

// selectRelation makes a relation of the root view current, or returns to
// the root when name is empty.
func (s *shell) selectRelation(args []string) error {
	if len(args) == 0 {
		s.store.SetActivePath(nil)
		s.current = s.root
		return nil
	}
	root, err := s.store.View(s.root)
	if err != nil {
		return err
	}
	key := s.root + "/" + args[0]
	if !contains(root.Children, key) {
		rels := make([]string, len(root.Children))
		for i, c := range root.Children {
			rels[i] = strings.TrimPrefix(c, s.root+"/")
		}
		return fmt.Errorf("%s has no relation %q (relations: %v)", s.root, args[0], rels)
	}
	s.store.SetActivePath([]string{s.root, args[0]})
	s.current = key
	return nil
}

// cellRef resolves ".expand <row> <column>" with a 1-based row number.
func (s *shell) cellRef(args []string) (browse.CellRef, error) {
	if len(args) != 2 {
		return browse.CellRef{}, errors.New("usage: .expand <row> <column>")
	}
	v, err := s.store.View(s.current)
	if err != nil {
		return browse.CellRef{}, err
	}
	row, err := s.rowIndex(v, args[0])
	if err != nil {
		return browse.CellRef{}, err
	}
	if !contains(v.Columns, args[1]) {
		return browse.CellRef{}, fmt.Errorf("unknown column %q", args[1])
	}
	return browse.CellRef{Entity: v.Key, Column: args[1], Row: row}, nil
}

// rowKey returns the delete action key of a 1-based row on the current page.
func (s *shell) rowKey(arg string) (core.PrimaryKeyClause, error) {
	v, err := s.store.View(s.current)
	if err != nil {
		return nil, err
	}
	row, err := s.rowIndex(v, arg)
	if err != nil {
		return nil, err
	}
	t := v.Render(nil)
	if !t.HasActions || t.Rows[row].Delete == nil {
		return nil, fmt.Errorf("view %s does not allow deletes: %w", v.Name, browse.ErrReadOnly)
	}
	return t.Rows[row].Delete.PK, nil
}

// rowIndex converts the row number shown in the "#" column into an index
// on the current page.
func (s *shell) rowIndex(v browse.ViewState, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid row %q", arg)
	}
	i := n - v.Filter.Offset - 1
	if i < 0 || i >= len(v.Rows) {
		return 0, fmt.Errorf("row %d is not on this page", n)
	}
	return i, nil
}

// show prints the current view.
func (s *shell) show() {
	v, err := s.store.View(s.current)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}
	if v.Err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", v.Err)
		return
	}
	_, _ = fmt.Fprintln(s.out, v.Title)
	if err := renderRows(s.out, v, s.store.Expanded(), s.opts); err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
}

func (s *shell) completer() *readline.PrefixCompleter {
	var cols []readline.PrefixCompleterInterface
	if v, err := s.store.View(s.current); err == nil {
		for _, c := range v.Columns {
			cols = append(cols, readline.PcItem(c))
		}
	}
	var views []readline.PrefixCompleterInterface
	for _, d := range s.store.Definitions() {
		views = append(views, readline.PcItem(d.Name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".views"),
		readline.PcItem(".open", views...),
		readline.PcItem(".show"),
		readline.PcItem(".refresh"),
		readline.PcItem(".sort", cols...),
		readline.PcItem(".page"),
		readline.PcItem(".next"),
		readline.PcItem(".prev"),
		readline.PcItem(".limit"),
		readline.PcItem(".where", cols...),
		readline.PcItem(".clear-where"),
		readline.PcItem(".expand"),
		readline.PcItem(".collapse"),
		readline.PcItem(".delete"),
		readline.PcItem(".rel"),
		readline.PcItem(".describe"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

// parseShellWhere parses "column operator [value]", where the value is the
// rest of the line.
func parseShellWhere(s string) (core.Clause, error) {
	col, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	op, value, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if col == "" || op == "" {
		return core.Clause{}, errors.New("usage: .where <column> <operator> [value]")
	}
	return parseWhere(col + ":" + op + ":" + strings.TrimSpace(value))
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help                         Show this help message
  .views                        List configured views
  .open <view>                  Switch to another view
  .show / .refresh              Print the page / re-run the query
  .sort <column>                Sort by column (again to reverse)
  .page <n> / .next / .prev     Move between pages
  .limit <n>                    Set rows per page
  .where <col> <op> [value]     Filter (ops: eq ne gt lt gte lte like nlike ilike nilike in nin is_null)
  .clear-where                  Remove all filters
  .expand <row> <column>        Show a long value in full (again to collapse)
  .collapse                     Collapse the expanded value
  .delete <row>                 Delete a row by its number in the # column
  .rel [name]                   Show a relation of the row page, or return to the view
  .describe                     Show the table schema
  .quit / .exit                 Exit the shell
`
	_, _ = fmt.Fprintln(w, help)
}
