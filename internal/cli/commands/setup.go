package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/internal/cli/config"
	"github.com/leapstack-labs/rowbrowse/internal/cli/output"
	intconfig "github.com/leapstack-labs/rowbrowse/internal/config"
	"github.com/leapstack-labs/rowbrowse/internal/state"
	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/spf13/cobra"

	// Register adapters.
	_ "github.com/leapstack-labs/rowbrowse/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/rowbrowse/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/rowbrowse/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/rowbrowse/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Adapter  adapter.Adapter
	State    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a connected adapter.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutAdapter(cmd)

	a, err := connectAdapter(cmd.Context(), cmdCtx.Cfg.Target, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Adapter = a

	cleanup := func() {
		if cmdCtx.State != nil {
			_ = cmdCtx.State.Close()
		}
		_ = a.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutAdapter creates a CommandContext without a database connection.
// Useful for commands that only read configuration.
func NewCommandContextWithoutAdapter(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// OpenState opens the state database, creating its directory if needed.
func (c *CommandContext) OpenState() error {
	if c.State != nil {
		return nil
	}
	st, err := openState(c.Cfg.StatePath, c.Logger)
	if err != nil {
		return err
	}
	c.State = st
	return nil
}

// NewBrowseStore creates a view store over the connected adapter.
// With persist set, filter state is restored from and saved to the state
// database and deletions are audited there.
func (c *CommandContext) NewBrowseStore(persist bool) (*browse.Store, error) {
	opts := []browse.Option{
		browse.WithLogger(c.Logger),
		browse.WithDefaultLimit(c.Cfg.UI.DefaultLimit),
	}
	if persist {
		if err := c.OpenState(); err != nil {
			return nil, err
		}
		opts = append(opts, browse.WithPersister(c.State), browse.WithRecorder(c.State))
	}
	return browse.NewStore(c.Adapter, c.Cfg.Views, opts...), nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	target := &core.TargetConfig{Type: intconfig.DefaultTarget}
	intconfig.ApplyTargetDefaults(target)
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		Environment:  config.DefaultEnv,
		LogLevel:     config.DefaultLogLevel,
		OutputFormat: os.Getenv(config.EnvPrefix + "OUTPUT"),
		Target:       target,
		Views:        intconfig.DefaultViews(),
		UI: config.UIConfig{
			Port:         config.DefaultPort,
			Watch:        true,
			DefaultLimit: core.DefaultLimit,
			PersistState: true,
		},
	}
}

func connectAdapter(ctx context.Context, target *core.TargetConfig, logger *slog.Logger) (adapter.Adapter, error) {
	if target == nil {
		return nil, fmt.Errorf("no target configured")
	}
	a, err := adapter.NewAdapter(target.AdapterConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, target.AdapterConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target.Type, err)
	}
	return a, nil
}

func openState(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	st := state.NewSQLiteStore(logger)
	if err := st.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return st, nil
}

// openView opens a view and waits for its first page.
func openView(ctx context.Context, store *browse.Store, name string) (string, error) {
	key, err := store.Open(ctx, name)
	if err != nil {
		return "", err
	}
	if err := store.Wait(ctx); err != nil {
		return "", err
	}
	return key, nil
}

// completeViews completes view names for the first positional argument.
func completeViews(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return getConfig().ViewNames(), cobra.ShellCompDirectiveNoFileComp
}
