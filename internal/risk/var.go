package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// VaRResult is a loss estimate at one confidence level.
// ⭐ SSOT: losses are positive (VaR=0.05 means a 5% loss)
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"` // expected shortfall beyond VaR
}

// HistoricalVaR estimates VaR and CVaR from the empirical return distribution.
// returns are simple daily returns (positive = gain).
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	tail := stat.Mean(sorted[:idx+1], nil)

	return VaRResult{
		Confidence: confidence,
		VaR:        asLoss(sorted[idx]),
		CVaR:       asLoss(tail),
	}
}

// ParametricVaR estimates VaR and CVaR assuming normally distributed returns
func ParametricVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) < 2 {
		return VaRResult{Confidence: confidence}
	}

	mean, std := stat.MeanStdDev(returns, nil)
	z := distuv.UnitNormal.Quantile(confidence)

	return VaRResult{
		Confidence: confidence,
		VaR:        asLoss(mean - z*std),
		CVaR:       asLoss(mean - std*distuv.UnitNormal.Prob(z)/(1-confidence)),
	}
}

func asLoss(r float64) float64 {
	if r >= 0 {
		return 0
	}
	return -r
}
