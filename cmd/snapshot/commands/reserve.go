package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reserveAsof         string
	reserveChainRebuild bool
)

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Scrape and persist reserve ratios only",
	Long:  `Scrapes the latest reserve-ratio figure for every active ticker and writes it into the snapshot row for one as-of date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		application, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer application.cleanup()

		result, err := application.orch.UpdateReserveRatioOnly(ctx, reserveAsof, reserveChainRebuild)
		if err != nil {
			return fmt.Errorf("reserve ratio update: %w", err)
		}

		application.logger.WithFields(map[string]interface{}{
			"asof_date":          result.AsofDate,
			"tickers":            result.Tickers,
			"reserve_ratio_rows": result.ReserveRatioRows,
			"snapshot_rows":      result.SnapshotRows,
			"chained_rebuild":    reserveChainRebuild,
		}).Info("reserve ratio update completed")

		return nil
	},
}

func init() {
	reserveCmd.Flags().StringVar(&reserveAsof, "asof", "", "as-of date (YYYY-MM-DD); defaults to the latest cached price date, then snapshot date")
	reserveCmd.Flags().BoolVar(&reserveChainRebuild, "chain-rebuild", false, "rebuild the full snapshot after writing reserve ratios")
	rootCmd.AddCommand(reserveCmd)
}
