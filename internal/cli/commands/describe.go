package commands

import (
	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "describe <view>",
		Short:             "Show the columns and keys of a view",
		Long:              `Describe the table behind a view: its columns, types, nullability and primary keys.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeViews,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store, err := cmdCtx.NewBrowseStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			key, err := openView(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			v, err := store.View(key)
			if err != nil {
				return err
			}
			return describeSchema(cmdCtx.Renderer, v)
		},
	}
}
