package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meltforce/liftlog/internal/app"
	"github.com/meltforce/liftlog/internal/backup"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/spf13/cobra"
)

var (
	exportOut string
	exportDir string
	importIn  string
	alphaIn   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup document",
	Long:  "Export every table to a versioned JSON backup. Without --out the file is written to --dir (or the configured backup directory) as workout-backup-YYYY-MM-DD.json. Use --out - for stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			if exportOut == "-" {
				doc, err := a.Backup.Export(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			if exportOut != "" {
				doc, err := a.Backup.Export(ctx)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding backup: %w", err)
				}
				if err := os.MkdirAll(filepath.Dir(exportOut), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(exportOut, data, 0o644); err != nil {
					return fmt.Errorf("writing backup: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sessions, %d sets to %s\n", len(doc.WorkoutSessions), len(doc.WorkoutSets), exportOut)
				return nil
			}
			dir := exportDir
			if dir == "" {
				dir = cfg.Backup.Dir
			}
			path, err := a.Backup.WriteFile(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported backup: %s\n", path)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace all data with a backup document",
	Long:  "Import a JSON backup, replacing everything in the store in one transaction. Reads stdin when --file is - or empty.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(importIn, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading backup: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			return report(cmd, "Imported backup", a.Backup.Import(ctx, raw))
		})
	},
}

var importAlphaCmd = &cobra.Command{
	Use:   "import-alpha",
	Short: "Add workout history from an Alpha Progression CSV export",
	Long:  "Import an Alpha Progression CSV export as completed sessions. Sessions already imported with the same start time are replaced; warm-up sets are skipped. Reads stdin when --file is - or empty.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(alphaIn, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading export: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			res, err := a.Alpha.Ingest(ctx, bytes.NewReader(raw))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sessions (%d replaced), %d sets, %d warm-ups skipped\n",
				res.SessionsInserted, res.SessionsReplaced, res.SetsInserted, res.WarmupsSkipped)
			for _, name := range res.ExercisesCreated {
				fmt.Fprintf(cmd.OutOrStdout(), "Created exercise: %s\n", name)
			}
			return nil
		})
	},
}

var restoreSnapshotCmd = &cobra.Command{
	Use:   "restore-snapshot",
	Short: "Restore the automatic snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			return report(cmd, "Restored snapshot", a.Backup.RestoreSnapshot(ctx))
		})
	},
}

var snapshotInfoCmd = &cobra.Command{
	Use:   "snapshot-info",
	Short: "Show when the automatic snapshot was taken",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, cfg *config.Config, a *app.App) error {
			meta, err := a.Backup.Meta(ctx)
			if errors.Is(err, backup.ErrNoSnapshot) {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshot saved yet")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot taken %s\n", meta.SavedAt.Local().Format(time.RFC1123))
			fmt.Fprintf(cmd.OutOrStdout(), "Sessions: %d\nSets: %d\n", meta.SessionCount, meta.SetCount)
			return nil
		})
	},
}

func report(cmd *cobra.Command, done string, res backup.Result) error {
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	if res.Orphans > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d rows whose parent was missing\n", res.Orphans)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, importAlphaCmd, restoreSnapshotCmd, snapshotInfoCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "", "Backup output file path (- for stdout)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Backup directory (used when --out is empty)")
	importCmd.Flags().StringVar(&importIn, "file", "", "Backup JSON file path (- or empty for stdin)")
	importAlphaCmd.Flags().StringVar(&alphaIn, "file", "", "Alpha Progression CSV path (- or empty for stdin)")
}
