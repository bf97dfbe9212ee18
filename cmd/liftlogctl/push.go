package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meltforce/liftlog/internal/app"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/upload"
	"github.com/spf13/cobra"
)

var (
	pushServer   string
	pushAPIKey   string
	pushStateDir string
	pushDryRun   bool
	pushForce    bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Copy the local journal to a remote LiftLog server",
	Long:  "Export the local store and import it on a remote LiftLog server, replacing everything stored there. Pushes are skipped when the server already holds identical data unless --force is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pushServer == "" && !pushDryRun {
			return fmt.Errorf("--server is required (or use --dry-run)")
		}
		if pushAPIKey == "" {
			pushAPIKey = os.Getenv("LIFTLOG_PUSH_API_KEY")
		}
		stateDir := pushStateDir
		if stateDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			stateDir = filepath.Join(home, ".liftlog-push")
		}

		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			state, err := upload.OpenStateDB(stateDir)
			if err != nil {
				return err
			}
			defer state.Close()

			var client *upload.Client
			if pushServer != "" {
				client = upload.NewClient(pushServer, pushAPIKey)
				if remote, err := client.FetchStats(ctx); err != nil {
					a.Log.Warn("could not read remote stats", "error", err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Remote before push: %d sessions, %d sets\n", remote.Sessions, remote.Sets)
				}
			}

			stats, err := upload.New(client, state, a.Backup, pushDryRun, pushForce, a.Log).Run(ctx)
			if stats != nil {
				printPushStats(cmd, stats)
			}
			return err
		})
	},
}

func printPushStats(cmd *cobra.Command, s *upload.Stats) {
	out := cmd.OutOrStdout()
	switch {
	case s.Pushed:
		fmt.Fprintf(out, "Pushed %d sessions, %d sets (%d bytes)\n", s.Sessions, s.Sets, s.Bytes)
	case s.Skipped:
		fmt.Fprintln(out, "Server already up to date")
	default:
		fmt.Fprintf(out, "Would push %d sessions, %d sets (%d bytes)\n", s.Sessions, s.Sets, s.Bytes)
	}
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringVar(&pushServer, "server", "", "LiftLog server URL (e.g. https://liftlog.tail1234.ts.net)")
	pushCmd.Flags().StringVar(&pushAPIKey, "api-key", "", "API key for the server's write routes (default $LIFTLOG_PUSH_API_KEY)")
	pushCmd.Flags().StringVar(&pushStateDir, "state-dir", "", "Directory for push state (default ~/.liftlog-push)")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Export and measure but don't send to the server")
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "Push even if the server already has this data")
}
