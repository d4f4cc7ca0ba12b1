package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFlag     string
	verboseFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "KOSPI/KOSDAQ equity snapshot engine",
	Long: `snapshot-engine CLI

Ingests KRX/Naver market data and a scraped reserve-ratio figure into a
Postgres-backed daily snapshot table for equity screening.

Usage:
  go run ./cmd/snapshot [command]

Examples:
  go run ./cmd/snapshot run
  go run ./cmd/snapshot rebuild
  go run ./cmd/snapshot reserve --chain-rebuild
  go run ./cmd/snapshot serve --port 8089`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
}
