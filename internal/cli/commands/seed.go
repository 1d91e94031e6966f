package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/rowbrowse/internal/cli/output"
	"github.com/leapstack-labs/rowbrowse/internal/demo"
	"github.com/spf13/cobra"
)

// SeedOptions holds options for the seed command.
type SeedOptions struct {
	Events int
	Drop   bool
	CSV    []string
}

// seedOutput is the JSON form of a seed run.
type seedOutput struct {
	Events      int          `json:"events"`
	Invocations int          `json:"invocations"`
	CSV         []seedCSVOut `json:"csv,omitempty"`
}

type seedCSVOut struct {
	Table string `json:"table"`
	File  string `json:"file"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create and fill the demo event tables",
		Long: `Create the event_logs and event_invocation_logs tables and the
pending_events view on the configured target, then fill them with sample
events. Samples include JSON payloads, NULL values and long webhook URLs.

Additional CSV files can be loaded with --csv table=path.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Seed a local SQLite file
  rowbrowse seed --db-type sqlite --database hooks.db

  # Seed 500 events and load a CSV of extra rows
  rowbrowse seed --events 500 --csv retries=./retries.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Events, "events", "n", demo.DefaultEvents, "Number of events to create")
	cmd.Flags().BoolVar(&opts.Drop, "drop", true, "Drop existing demo tables first")
	cmd.Flags().StringArrayVar(&opts.CSV, "csv", nil, "Load a CSV file into a table (table=path, repeatable)")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	csvFiles, err := parseCSVArgs(opts.CSV)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	r := cmdCtx.Renderer

	res, err := demo.Seed(ctx, cmdCtx.Adapter, demo.Options{
		Events: opts.Events,
		Drop:   opts.Drop,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	out := seedOutput{Events: res.Events, Invocations: res.Invocations}
	for _, f := range csvFiles {
		if err := cmdCtx.Adapter.LoadCSV(ctx, f.Table, f.File); err != nil {
			return fmt.Errorf("failed to load %s into %s: %w", f.File, f.Table, err)
		}
		out.CSV = append(out.CSV, f)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		r.Header(1, "Seed")
		r.Success(fmt.Sprintf("%d events, %d invocations on %s", out.Events, out.Invocations, cmdCtx.Cfg.Target.Type))
		for _, f := range out.CSV {
			r.Success(fmt.Sprintf("%s loaded from %s", f.Table, f.File))
		}
	}
	return nil
}

// parseCSVArgs parses table=path pairs. A bare path loads into a table
// named after the file.
func parseCSVArgs(args []string) ([]seedCSVOut, error) {
	out := make([]seedCSVOut, 0, len(args))
	for _, a := range args {
		table, file, ok := strings.Cut(a, "=")
		if !ok {
			file = a
			table = strings.TrimSuffix(filepath.Base(a), filepath.Ext(a))
		}
		if table == "" || file == "" {
			return nil, fmt.Errorf("invalid --csv %q (want table=path)", a)
		}
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("csv file %s: %w", file, err)
		}
		out = append(out, seedCSVOut{Table: table, File: file})
	}
	return out, nil
}
