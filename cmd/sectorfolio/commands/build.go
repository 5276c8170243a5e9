package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorfolio/internal/brain"
	"github.com/wonny/sectorfolio/internal/contracts"
)

// buildCmd runs the portfolio pipeline once from the command line
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a purchase plan",
	Long: `Runs the full portfolio pipeline once and prints the purchase plan.

Defaults for max share, amount and risk level come from PORTFOLIO_* settings.

Example:
  go run ./cmd/sectorfolio build --sectors "IT,Finance"
  go run ./cmd/sectorfolio build --sectors IT --amount 250000 --crypto --json`,
	RunE: runBuild,
}

var (
	buildSectors   []string
	buildMaxShare  float64
	buildAmount    float64
	buildRiskLevel float64
	buildCrypto    bool
	buildJSON      bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringSliceVar(&buildSectors, "sectors", nil, "comma-separated sector names")
	buildCmd.Flags().Float64Var(&buildMaxShare, "max-share", 0, "max weight per asset in (0, 1]")
	buildCmd.Flags().Float64Var(&buildAmount, "amount", 0, "budget in RUB")
	buildCmd.Flags().Float64Var(&buildRiskLevel, "risk-level", 0, "risk multiplier for the sector budget")
	buildCmd.Flags().BoolVar(&buildCrypto, "crypto", false, "include the crypto sector")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "print the full run result as JSON")
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req := brain.Request{
		Sectors:       buildSectors,
		MaxShare:      a.cfg.Portfolio.MaxShare,
		Amount:        a.cfg.Portfolio.Amount,
		RiskLevel:     a.cfg.Portfolio.RiskLevel,
		IncludeCrypto: buildCrypto || a.cfg.Portfolio.IncludeCrypto,
	}
	if cmd.Flags().Changed("max-share") {
		req.MaxShare = buildMaxShare
	}
	if cmd.Flags().Changed("amount") {
		req.Amount = buildAmount
	}
	if cmd.Flags().Changed("risk-level") {
		req.RiskLevel = buildRiskLevel
	}

	result, err := a.orchestrator.BuildPortfolio(context.Background(), req)
	if err != nil {
		return fmt.Errorf("build portfolio: %w", err)
	}

	if buildJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(result *brain.Result) {
	PrintHeader("Purchase Plan")
	PrintKeyValue("Run ID", result.RunID, 16)
	PrintKeyValue("USD/RUB", fmt.Sprintf("%.4f", result.ExchangeRate), 16)
	PrintKeyValue("Weights source", result.WeightsSource, 16)
	PrintKeyValue("Stages", strings.Join(result.CompletedStages, " → "), 16)
	PrintKeyValue("Duration", result.Duration.String(), 16)
	PrintSeparator()

	if result.Plan == nil || result.Plan.Empty() {
		PrintWarning("Nothing to buy within the budget")
		return
	}

	widths := []int{12, 8, 10, 14, 14}
	PrintTableHeader([]string{"Ticker", "Type", "Weight", "Quantity", "Cost RUB"}, widths)
	for _, p := range result.Plan.Purchases {
		base := p.Base()
		qty := ""
		switch v := p.(type) {
		case contracts.EquityPurchase:
			qty = fmt.Sprintf("%d lots", v.Lots)
		case contracts.CryptoPurchase:
			qty = fmt.Sprintf("%.6f", v.Quantity)
		}
		PrintTableRow([]string{
			base.Ticker,
			string(contracts.KindOfPurchase(p)),
			fmt.Sprintf("%.2f%%", base.TargetWeight*100),
			qty,
			fmt.Sprintf("%.2f", base.CostRUB),
		}, widths)
	}

	PrintSeparator()
	PrintKeyValue("Total allocated", fmt.Sprintf("%.2f RUB", result.Plan.TotalAllocated), 16)
	PrintKeyValue("Remaining", fmt.Sprintf("%.2f RUB", result.Plan.RemainingBudget), 16)

	if len(result.Views) > 0 {
		fmt.Println()
		fmt.Println("Views:")
		tickers := make([]string, 0, len(result.Views))
		for t := range result.Views {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		items := make([]string, 0, len(tickers))
		for _, t := range tickers {
			items = append(items, fmt.Sprintf("%s: %+.2f%%", t, result.Views[t]*100))
		}
		PrintList(items)
	}
}
