package portfolio

import (
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// ExtractWeights converts an initial allocation into normalized weights.
// Allocations with non-positive cost are dropped, never zero-weighted.
// Order follows sector order, then allocation order inside each sector.
func ExtractWeights(result *contracts.PortfolioResult) (contracts.Weights, error) {
	if result == nil {
		return nil, fmt.Errorf("extract weights: %w: no allocation", contracts.ErrEmptyInput)
	}

	total := result.TotalCost()
	if total <= 0 {
		return nil, fmt.Errorf("extract weights: %w: zero total cost", contracts.ErrEmptyInput)
	}

	weights := make(contracts.Weights, 0)
	for _, sector := range result.Sectors {
		for _, a := range sector.Allocations {
			b := a.Base()
			if b.TotalCost <= 0 {
				continue
			}
			weights = append(weights, contracts.Weight{Ticker: b.Ticker, Value: b.TotalCost / total})
		}
	}
	return weights, nil
}
