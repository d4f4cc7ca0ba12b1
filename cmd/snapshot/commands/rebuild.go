package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	rebuildAsof         string
	rebuildLookbackDays int
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the snapshot table from cached data only",
	Long:  `Recomputes snapshot_metrics from already-cached price/cap/fundamental rows, without calling the market-data client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		application, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer application.cleanup()

		lookback := rebuildLookbackDays
		if lookback <= 0 {
			lookback = application.cfg.Orchestrator.DefaultLookbackDays
		}

		result, err := application.orch.RebuildSnapshotOnly(ctx, rebuildAsof, lookback)
		if err != nil {
			return fmt.Errorf("snapshot rebuild: %w", err)
		}

		application.logger.WithFields(map[string]interface{}{
			"asof_date":     result.AsofDate,
			"tickers":       result.Tickers,
			"snapshot_rows": result.SnapshotRows,
		}).Info("snapshot rebuild completed")

		return nil
	},
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildAsof, "asof", "", "as-of date (YYYY-MM-DD); defaults to the latest cached price date, then snapshot date")
	rebuildCmd.Flags().IntVar(&rebuildLookbackDays, "lookback-days", 0, "price window in days; 0 uses the configured default")
	rootCmd.AddCommand(rebuildCmd)
}
