package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runAsof         string
	runLookbackDays int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ingest-to-snapshot pipeline",
	Long:  `Refreshes tickers, backfills OHLCV/market-cap/fundamentals, and rebuilds the snapshot for one as-of date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		application, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer application.cleanup()

		lookback := runLookbackDays
		if lookback <= 0 {
			lookback = application.cfg.Orchestrator.DefaultLookbackDays
		}

		result, err := application.orch.Run(ctx, runAsof, lookback)
		if err != nil {
			return fmt.Errorf("full run: %w", err)
		}

		application.logger.WithFields(map[string]interface{}{
			"asof_date":        result.AsofDate,
			"tickers":          result.Tickers,
			"price_rows":       result.PriceRows,
			"cap_rows":         result.CapRows,
			"fundamental_rows": result.FundamentalRows,
			"snapshot_rows":    result.SnapshotRows,
		}).Info("full run completed")

		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runAsof, "asof", "", "as-of date (YYYY-MM-DD); defaults to the most recent business day")
	runCmd.Flags().IntVar(&runLookbackDays, "lookback-days", 0, "OHLCV lookback window in days; 0 uses the configured default")
	rootCmd.AddCommand(runCmd)
}
