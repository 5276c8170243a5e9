package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	universePath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sectorfolio",
	Short: "Sector-based portfolio builder for MOEX equities and crypto",
	Long: `Sectorfolio Unified CLI

Builds a sector-diversified purchase plan: beta-weighted initial allocation,
Black-Litterman optimization over analyst and model views, and a lot-aware
purchase plan within the budget.

Usage:
  go run ./cmd/sectorfolio [command]

Examples:
  go run ./cmd/sectorfolio api
  go run ./cmd/sectorfolio build --sectors "IT,Finance" --amount 100000
  go run ./cmd/sectorfolio data refresh
  go run ./cmd/sectorfolio scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&universePath, "universe", "", "universe YAML file (default is the embedded universe)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
