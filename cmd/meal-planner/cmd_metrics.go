package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cleanupDays int
	statsDays   int
)

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old generation metric records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		affected, err := a.CleanupMetrics(ctx, cleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daily generation totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		summary, err := a.Stats(ctx, statsDays)
		if err != nil {
			return err
		}
		if len(summary) == 0 {
			fmt.Println("No generations recorded.")
		}
		for _, d := range summary {
			fmt.Printf("%s  %3d runs  %3d failed  %3d resets  %6.1fms avg\n",
				d.Date, d.Runs, d.Failures, d.RotationResets, d.AvgLatencyMS)
		}
		return nil
	},
}

func init() {
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records for the last N days")
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Number of days to report")
	rootCmd.AddCommand(metricsCleanupCmd, statsCmd)
}
