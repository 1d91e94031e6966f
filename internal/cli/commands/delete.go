package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/spf13/cobra"
)

// DeleteOptions holds options for the delete command.
type DeleteOptions struct {
	PK []string
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	opts := &DeleteOptions{}

	cmd := &cobra.Command{
		Use:   "delete <view>",
		Short: "Delete a row by primary key",
		Long: `Delete one row of a view, identified by its primary-key columns.

Read-only views and views without primary keys refuse deletes. Every delete
is recorded in the state database.`,
		Example:           `  rowbrowse delete event_logs --pk id=7f1c2a9e-0c1d-4d7a-9b55-1f0e3b7d2c11`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeViews,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.PK, "pk", nil, "Primary key column=value (repeat for composite keys)")
	_ = cmd.MarkFlagRequired("pk")

	return cmd
}

func runDelete(cmd *cobra.Command, view string, opts *DeleteOptions) error {
	pk, err := core.ParsePrimaryKeyClause(opts.PK)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := cmdCtx.NewBrowseStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	key, err := openView(ctx, store, view)
	if err != nil {
		return err
	}

	v, err := store.View(key)
	if err != nil {
		return err
	}
	for _, col := range pk.Columns() {
		if !contains(v.PrimaryKeys, col) {
			return fmt.Errorf("%q is not a primary key of %s (keys: %v)", col, view, v.PrimaryKeys)
		}
	}

	if err := store.Dispatch(ctx, key, browse.DeleteRow{PK: pk}); err != nil {
		if errors.Is(err, browse.ErrReadOnly) {
			return fmt.Errorf("view %s does not allow deletes: %w", view, err)
		}
		return err
	}
	if err := store.Wait(ctx); err != nil {
		return err
	}

	cmdCtx.Renderer.Success(fmt.Sprintf("Deleted %s from %s", pk, v.Table))
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
