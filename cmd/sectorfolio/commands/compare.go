package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// compareCmd correlates a sector index with a crypto pair
var compareCmd = &cobra.Command{
	Use:   "compare [sector] [crypto]",
	Short: "Correlate a sector index with a crypto pair",
	Long: `Builds the equally weighted sector index and the crypto series, both
normalized to 100 on their first day, and prints their Pearson correlation.

Example:
  go run ./cmd/sectorfolio compare IT BTC-USD`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cmp, err := a.comparator.Compare(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	PrintHeader(fmt.Sprintf("%s vs %s", cmp.Sector, cmp.Crypto))
	PrintKeyValue("Days", fmt.Sprintf("%d", len(cmp.Dates)), 12)
	PrintKeyValue("Correlation", fmt.Sprintf("%.4f", cmp.Correlation), 12)
	if n := len(cmp.Dates); n > 0 {
		PrintKeyValue("Sector", fmt.Sprintf("%.2f → %.2f", cmp.SectorValues[0], cmp.SectorValues[n-1]), 12)
		PrintKeyValue("Crypto", fmt.Sprintf("%.2f → %.2f", cmp.CryptoValues[0], cmp.CryptoValues[n-1]), 12)
	}
	return nil
}
