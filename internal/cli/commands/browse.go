package commands

import (
	"fmt"

	"github.com/leapstack-labs/rowbrowse/internal/tui"
	"github.com/spf13/cobra"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <view>",
		Short: "Browse a view in a full-screen terminal UI",
		Long: `Open a view in a full-screen table browser.

Move between rows and columns with the arrow keys, sort by the selected
column with s and page with n and p. Enter expands a long cell, tab steps
through the view's relations and d deletes the selected row. Press ? for
all key bindings.

Filter state is saved to the state database and restored the next time the
view is opened.`,
		Example: `  rowbrowse browse event_logs
  rowbrowse browse pending_events --db-type sqlite --database hooks.db`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeViews,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args[0])
		},
	}
	return cmd
}

func runBrowse(cmd *cobra.Command, view string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, ok := cmdCtx.Cfg.View(view); !ok {
		return fmt.Errorf("unknown view %q (available: %v)", view, cmdCtx.Cfg.ViewNames())
	}

	store, err := cmdCtx.NewBrowseStore(cmdCtx.Cfg.UI.PersistState)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	key, err := store.Open(ctx, view)
	if err != nil {
		return err
	}
	return tui.Run(ctx, store, key)
}
