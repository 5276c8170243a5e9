package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// dataCmd groups market data maintenance commands
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Market data maintenance",
	Long: `Refreshes stored sector data and collects daily price history.

Subcommands:
  refresh  - refresh price, beta and lot of every universe asset
  collect  - top up daily close history

Example:
  go run ./cmd/sectorfolio data refresh
  go run ./cmd/sectorfolio data collect --days 365 --tickers SBER,BTC-USD`,
}

var (
	dataRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Refresh sector data",
		RunE:  runDataRefresh,
	}

	dataCollectCmd = &cobra.Command{
		Use:   "collect",
		Short: "Collect daily price history",
		RunE:  runDataCollect,
	}

	collectDays    int
	collectTickers []string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataRefreshCmd)
	dataCmd.AddCommand(dataCollectCmd)

	dataCollectCmd.Flags().IntVar(&collectDays, "days", 0, "days of history (default PORTFOLIO_HISTORY_DAYS)")
	dataCollectCmd.Flags().StringSliceVar(&collectTickers, "tickers", nil, "tickers to collect (default: whole universe)")
}

func runDataRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	result, err := a.refresher.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	PrintHeader("Sector Data Refresh")
	PrintKeyValue("Updated", fmt.Sprintf("%d", result.Updated), 10)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", len(result.Skipped)), 10)
	PrintList(result.Skipped)
	PrintSuccess(fmt.Sprintf("Completed in %.2fs", time.Since(start).Seconds()))
	return nil
}

func runDataCollect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	days := a.cfg.Portfolio.HistoryDays
	if collectDays > 0 {
		days = collectDays
	}
	tickers := collectTickers
	if len(tickers) == 0 {
		tickers = a.universe.AllTickers()
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	start := time.Now()
	summary, err := a.collector.Collect(context.Background(), tickers, from, to)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	PrintHeader("Price History Collection")
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s", from.Format("2006-01-02"), to.Format("2006-01-02")), 10)
	PrintKeyValue("Success", fmt.Sprintf("%d", summary.Success), 10)
	PrintKeyValue("Failed", fmt.Sprintf("%d", summary.Failed), 10)
	PrintKeyValue("Points", fmt.Sprintf("%d", summary.Points), 10)

	for _, r := range summary.Results {
		if r.Error != nil {
			fmt.Printf("   ❌ %s: %v\n", r.Ticker, r.Error)
		}
	}

	PrintSuccess(fmt.Sprintf("Completed in %.2fs", time.Since(start).Seconds()))
	return nil
}
