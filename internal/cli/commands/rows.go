package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/spf13/cobra"
)

// RowsOptions holds options for the rows command.
type RowsOptions struct {
	Sort    string
	Desc    bool
	Page    int
	Limit   int
	Where   []string
	Format  string
	Full    bool
	Restore bool
}

// NewRowsCommand creates the rows command.
func NewRowsCommand() *cobra.Command {
	opts := &RowsOptions{}

	cmd := &cobra.Command{
		Use:   "rows <view>",
		Short: "Print one page of a view",
		Long: `Fetch one page of rows from a configured view and print it.

Filters use column:operator:value, with the operators eq, ne, gt, lt, gte,
lte, like, nlike, ilike, nilike, in, nin and is_null. Values for in and nin
are comma separated. Values longer than 20 characters are collapsed unless
--full is given.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: markdown
Use --format to override: table, json, yaml, csv, md`,
		Example: `  # First page of processed events
  rowbrowse rows event_logs

  # Third page of undelivered events, newest first
  rowbrowse rows event_logs --where delivered:eq:false --sort created_at --desc --page 2

  # Export as CSV
  rowbrowse rows event_logs --limit 100 --format csv > events.csv`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeViews,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRows(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Sort, "sort", "s", "", "Column to sort by")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "Sort descending")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 0, "Zero-based page number")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "Rows per page (default: view or ui.default_limit)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "Filter column:operator:value (repeatable)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, yaml, csv, md")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "Show full cell values")
	cmd.Flags().BoolVar(&opts.Restore, "restore", false, "Start from the saved filter state of the view")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return rowFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRows(cmd *cobra.Command, view string, opts *RowsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format, err := resolveFormat(opts.Format, cmdCtx.Renderer)
	if err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	store, err := cmdCtx.NewBrowseStore(opts.Restore)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	v, err := fetchPage(ctx, store, view, opts.intents)
	if err != nil {
		return err
	}

	return renderRows(cmd.OutOrStdout(), v, nil, renderOptions{
		Format: format,
		Full:   opts.Full,
		Styled: cmdCtx.Renderer.Styled(),
	})
}

// fetchPage opens view, applies the intents derived from its opening filter
// state and returns the settled view.
func fetchPage(ctx context.Context, store *browse.Store, view string, build func(core.FilterState) []browse.Intent) (browse.ViewState, error) {
	key, err := openView(ctx, store, view)
	if err != nil {
		return browse.ViewState{}, err
	}
	opened, err := store.View(key)
	if err != nil {
		return browse.ViewState{}, err
	}
	if intents := build(opened.Filter); len(intents) > 0 {
		if err := store.Dispatch(ctx, key, intents...); err != nil {
			return browse.ViewState{}, err
		}
		if err := store.Wait(ctx); err != nil {
			return browse.ViewState{}, err
		}
	}
	v, err := store.View(key)
	if err != nil {
		return browse.ViewState{}, err
	}
	if v.Err != nil {
		return browse.ViewState{}, fmt.Errorf("failed to fetch %s: %w", view, v.Err)
	}
	return v, nil
}

func (o *RowsOptions) validate() error {
	for _, w := range o.Where {
		if _, err := parseWhere(w); err != nil {
			return err
		}
	}
	if o.Desc && o.Sort == "" {
		return fmt.Errorf("--desc requires --sort")
	}
	if o.Limit < 0 {
		return fmt.Errorf("--limit must be positive")
	}
	if o.Page < 0 {
		return fmt.Errorf("--page must not be negative")
	}
	return nil
}

// intents translates the flags into filter intents ending in a query.
// It returns nil when no flag changes the filter. Flags must be validated.
func (o *RowsOptions) intents(current core.FilterState) []browse.Intent {
	var intents []browse.Intent

	for i, w := range o.Where {
		c, _ := parseWhere(w)
		if i >= len(current.Where) {
			intents = append(intents, browse.AddWhereClause{})
		}
		intents = append(intents,
			browse.SetWhereColumn{Column: c.Column, Index: i},
			browse.SetWhereOperator{Operator: c.Operator, Index: i},
			browse.SetWhereValue{Value: c.Value, Index: i},
		)
	}

	if o.Sort != "" {
		dir := core.Asc
		if o.Desc {
			dir = core.Desc
		}
		if len(current.OrderBy) == 0 {
			intents = append(intents, browse.AddOrderClause{})
		}
		intents = append(intents,
			browse.SetColumn{Column: o.Sort, Index: 0},
			browse.SetDirection{Direction: dir, Index: 0},
		)
	}

	limit := current.Limit
	if o.Limit > 0 && o.Limit != current.Limit {
		limit = o.Limit
		intents = append(intents, browse.SetLimit{N: limit})
	}
	if offset := o.Page * limit; offset != current.Offset {
		intents = append(intents, browse.SetOffset{N: offset})
	}

	if len(intents) == 0 {
		return nil
	}
	return append(intents, browse.RunQuery{})
}

// parseWhere parses "column:operator:value". The value may contain colons.
func parseWhere(s string) (core.Clause, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return core.Clause{}, fmt.Errorf("invalid filter %q (want column:operator:value)", s)
	}
	op, err := core.ParseOperator(parts[1])
	if err != nil {
		return core.Clause{}, err
	}
	if op == "" {
		return core.Clause{}, fmt.Errorf("invalid filter %q: operator is required", s)
	}
	c := core.Clause{Column: strings.TrimSpace(parts[0]), Operator: op}
	if len(parts) == 3 {
		c.Value = parts[2]
	}
	if c.Value == "" && op != core.OpIsNull {
		return core.Clause{}, fmt.Errorf("invalid filter %q: value is required", s)
	}
	return c, nil
}
