package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/app"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/spf13/cobra"
)

var (
	reportRange string
	reportJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a progress report",
	Long:  "Print session volume, weekly streaks, plateau alerts and the best mood/energy pairing for a time range (7d, 30d, 90d, 180d, 1y, all).",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := analytics.ParseRange(reportRange)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, _ *config.Config, a *app.App) error {
			d, err := a.Engine.Dashboard(ctx, r)
			if err != nil {
				return err
			}
			if reportJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return writeReport(cmd.OutOrStdout(), d)
		})
	},
}

func writeReport(out io.Writer, d *analytics.Dashboard) error {
	fmt.Fprintf(out, "Range: %s\n", d.Range)
	fmt.Fprintf(out, "Sessions: %d  Average volume: %.0f\n", len(d.Summaries), d.AverageVolume)
	fmt.Fprintf(out, "Streak: %d weeks (longest %d)\n", d.Streaks.CurrentStreak, d.Streaks.LongestStreak)
	if b := d.BestMoodEnergy; b != nil {
		fmt.Fprintf(out, "Best mood/energy: %d/%d (avg volume %.0f over %d sessions)\n", b.Mood, b.Energy, b.AvgVolume, b.SessionCount)
	}

	if len(d.Summaries) > 0 {
		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tVOLUME\tSETS\tMINUTES")
		for _, s := range d.Summaries {
			fmt.Fprintf(tw, "%s\t%.0f\t%d\t%d\n", s.Session.StartedAt.Format("2006-01-02"), s.TotalVolume, s.TotalSets, s.DurationMinutes)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(d.Plateaus) > 0 {
		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PLATEAU\tSESSIONS\tTOP SET")
		for _, p := range d.Plateaus {
			fmt.Fprintf(tw, "%s\t%d\t%gx%d\n", p.ExerciseName, p.StalledSessions, p.LastWeight, p.LastReps)
		}
		return tw.Flush()
	}
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportRange, "range", "30d", "Time range: 7d, 30d, 90d, 180d, 1y or all")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
}
