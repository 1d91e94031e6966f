package commands

import (
	"strings"

	"github.com/leapstack-labs/rowbrowse/internal/cli/output"
	"github.com/spf13/cobra"
)

// viewInfo is the JSON form of a configured view.
type viewInfo struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Table     string   `json:"table"`
	ReadOnly  bool     `json:"read_only"`
	Relations []string `json:"relations,omitempty"`
}

// NewViewsCommand creates the views command.
func NewViewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List configured views",
		Long:  `List the views defined in rowbrowse.yaml, or the built-in event views when none are configured.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutAdapter(cmd)
			r := cmdCtx.Renderer

			infos := make([]viewInfo, 0, len(cmdCtx.Cfg.Views))
			for _, v := range cmdCtx.Cfg.Views {
				info := viewInfo{Name: v.Name, Title: v.DisplayTitle(), Table: v.Table, ReadOnly: v.ReadOnly}
				for _, rel := range v.Relations {
					info.Relations = append(info.Relations, rel.Name+" -> "+rel.View)
				}
				infos = append(infos, info)
			}

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(infos)
			}

			rows := make([][]string, len(infos))
			for i, info := range infos {
				ro := ""
				if info.ReadOnly {
					ro = "yes"
				}
				rows[i] = []string{info.Name, info.Title, info.Table, ro, strings.Join(info.Relations, ", ")}
			}
			r.Header(1, "Views")
			r.Table([]string{"Name", "Title", "Table", "Read only", "Relations"}, rows)
			return nil
		},
	}
}
