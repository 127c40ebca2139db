package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/app"
	"github.com/HendryAvila/trae-mem/internal/httpapi"
	"github.com/HendryAvila/trae-mem/internal/server"
	"github.com/HendryAvila/trae-mem/internal/updater"
)

func newServeCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP mirror",
		Long: `Serve the memory operations over HTTP + JSON. Defaults come from the
config file, then TRAE_MEM_HTTP_HOST / TRAE_MEM_HTTP_PORT, then
127.0.0.1:37777. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return withApp(cmd, func(a *app.App) error {
				if !cmd.Flags().Changed("host") {
					host = a.Config.HTTPHost
				}
				if !cmd.Flags().Changed("port") {
					port = a.Config.HTTPPort
				}
				checkForUpdates(ctx, a.Logger)
				if err := httpapi.New(a, host, port).Run(ctx); err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	cmd.Flags().IntVar(&port, "port", 37777, "listen port")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Long: `Start the MCP server using stdio transport (JSON-RPC 2.0 over stdin/stdout).
This is how the IDE talks to trae-mem; "trae-mem install" registers it.

  {
    "mcpServers": {
      "trae-mem": {
        "command": "trae-mem",
        "args": ["mcp"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return withApp(cmd, func(a *app.App) error {
				checkForUpdates(ctx, a.Logger)
				a.Logger.Info("starting MCP server on stdio", "db", a.Store.Path())
				if err := server.ServeStdio(ctx, a, os.Stdin, cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
					return fmt.Errorf("MCP server error: %w", err)
				}
				return nil
			})
		},
	}
}

// checkForUpdates logs a notice on stderr when a newer release exists.
// Development builds skip the check.
func checkForUpdates(ctx context.Context, logger *slog.Logger) {
	if server.Version == "dev" || os.Getenv("TRAE_MEM_NO_UPDATE_CHECK") != "" {
		return
	}
	updater.New(logger).CheckInBackground(ctx, server.Version)
}
