package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/meltforce/liftlog/internal/app"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "liftlogctl",
	Short:         "liftlogctl operates a LiftLog workout journal",
	Long:          "liftlogctl exports and restores LiftLog backups, prints progress reports, pushes the journal to a remote server and serves the MCP tools over stdio.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (defaults apply when empty)")
}

// withApp loads config and opens the store for one command. Logs go to
// stderr so stdout stays clean for command output.
func withApp(cmd *cobra.Command, run func(ctx context.Context, cfg *config.Config, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, closer := logging.NewWriter(cfg.Log, cmd.ErrOrStderr())
	defer closer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, cfg, a)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
