package commands

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/leapstack-labs/rowbrowse/internal/browse"
	"github.com/leapstack-labs/rowbrowse/internal/cli/config"
	"github.com/leapstack-labs/rowbrowse/internal/ui"
	"github.com/spf13/cobra"
)

// devSessionSecret signs session cookies when no secret is configured.
const devSessionSecret = "rowbrowse-dev-secret-change-in-production" //nolint:gosec

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the row browser in a web browser",
		Long: `Start a local web server browsing the configured views.

Each browser session keeps its own filter state: sort column, page, page
size, where-clauses and the open relation tabs. Deleting a row refreshes
every other session showing the same table. With --watch, edits to the
config file reload the view definitions.

Session cookies are signed with ui.session_secret
(ROWBROWSE_UI__SESSION_SECRET). Without one a fixed development secret is
used.`,
		Example: `  # Serve on the default port
  rowbrowse serve

  # Serve on a custom port and open the browser
  rowbrowse serve --port 3000 --open`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().Bool("watch", true, "Reload view definitions when the config file changes")
	cmd.Flags().Bool("open", false, "Open the browser once the server is listening")
	cmd.Flags().String("secret", "", "Session cookie secret")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	uiCfg := cmdCtx.Cfg.UI
	secret := uiCfg.SessionSecret
	if secret == "" {
		cmdCtx.Renderer.Warning("No session secret configured; using the development secret")
		secret = devSessionSecret
	}

	var storeOpts []browse.Option
	storeOpts = append(storeOpts, browse.WithDefaultLimit(uiCfg.DefaultLimit))
	if uiCfg.PersistState {
		if err := cmdCtx.OpenState(); err != nil {
			return err
		}
		storeOpts = append(storeOpts, browse.WithPersister(cmdCtx.State), browse.WithRecorder(cmdCtx.State))
	}

	server, err := ui.NewServer(ui.Config{
		Backend:       cmdCtx.Adapter,
		Views:         cmdCtx.Cfg.Views,
		StoreOptions:  storeOpts,
		Host:          "localhost",
		Port:          uiCfg.Port,
		Watch:         uiCfg.Watch,
		ConfigFile:    config.GetConfigFileUsed(),
		SessionSecret: secret,
		SecureCookies: uiCfg.SecureCookies,
		Logger:        cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	return server.Serve(cmd.Context(), func(addr string) {
		url := "http://" + addr
		r.Success(fmt.Sprintf("Serving %d views on %s", len(cmdCtx.Cfg.Views), url))
		r.Muted("Press Ctrl+C to stop")
		if uiCfg.AutoOpen {
			go openBrowser(url, cmdCtx.Logger)
		}
	})
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	if err := cmd.Start(); err != nil {
		logger.Debug("failed to open browser", slog.Any("error", err))
	}
}
