package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/liftlog/internal/app"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/logging"
	"github.com/meltforce/liftlog/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpRemote string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long:  "Run an MCP server on stdin/stdout for assistant clients. By default it reads the local store; with --remote it queries a running LiftLog server's REST API instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if mcpRemote != "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, closer := logging.NewWriter(cfg.Log, cmd.ErrOrStderr())
			defer closer.Close()
			log.Info("serving MCP over stdio", "remote", mcpRemote)
			return serveStdio(ctx, cmd, mcp.NewHTTPClient(mcpRemote), log)
		}

		return withApp(cmd, func(_ context.Context, _ *config.Config, a *app.App) error {
			a.Log.Info("serving MCP over stdio", "store", "local")
			return serveStdio(ctx, cmd, a.Engine, a.Log)
		})
	},
}

func serveStdio(ctx context.Context, cmd *cobra.Command, ds mcp.DataSource, log *slog.Logger) error {
	s := mcpserver.NewStdioServer(mcp.New(ds, Version, log))
	s.SetErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))
	return s.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpRemote, "remote", "", "LiftLog server URL to query instead of the local store")
}
