package risk

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// TradingDays annualizes daily statistics
const TradingDays = 252

// MinObservations is the fewest daily returns a report is computed from
const MinObservations = 20

// DefaultConfidences are the levels reported when none are given
var DefaultConfidences = []float64{0.95, 0.99}

// ErrInsufficientData is returned when the history is too short
var ErrInsufficientData = errors.New("insufficient price history for risk report")

// Report describes the historical risk of a weighted portfolio
type Report struct {
	Observations int         `json:"observations"`
	Coverage     float64     `json:"coverage"` // weight share with price history
	Volatility   float64     `json:"volatility"`
	MaxDrawdown  float64     `json:"max_drawdown"`
	Historical   []VaRResult `json:"historical"`
	Parametric   []VaRResult `json:"parametric"`
}

// Assess replays the weights over the price table. Weights of tickers missing
// from the table are left out and the rest renormalized; Coverage records the
// share that was kept.
func Assess(table *contracts.PriceTable, weights contracts.Weights, confidences ...float64) (*Report, error) {
	if len(confidences) == 0 {
		confidences = DefaultConfidences
	}
	for _, c := range confidences {
		if c <= 0 || c >= 1 {
			return nil, fmt.Errorf("confidence %v must be in (0, 1)", c)
		}
	}

	if table.Rows() < MinObservations+1 {
		return nil, ErrInsufficientData
	}

	cols := make([]int, 0, len(weights))
	w := make([]float64, 0, len(weights))
	for _, x := range weights {
		if j := table.Index(x.Ticker); j >= 0 && x.Value > 0 {
			cols = append(cols, j)
			w = append(w, x.Value)
		}
	}
	total := floats.Sum(w)
	if total <= 0 {
		return nil, ErrInsufficientData
	}
	floats.Scale(1/total, w)

	returns := PortfolioReturns(table, cols, w)

	report := &Report{
		Observations: len(returns),
		Coverage:     total / weights.Sum(),
		Volatility:   stat.StdDev(returns, nil) * math.Sqrt(TradingDays),
		MaxDrawdown:  MaxDrawdown(returns),
		Historical:   make([]VaRResult, 0, len(confidences)),
		Parametric:   make([]VaRResult, 0, len(confidences)),
	}
	for _, c := range confidences {
		report.Historical = append(report.Historical, HistoricalVaR(returns, c))
		report.Parametric = append(report.Parametric, ParametricVaR(returns, c))
	}

	return report, nil
}

// PortfolioReturns computes daily simple returns of a constant-weight mix of
// the given table columns
func PortfolioReturns(table *contracts.PriceTable, cols []int, weights []float64) []float64 {
	n := table.Rows()
	if n < 2 {
		return nil
	}

	out := make([]float64, n-1)
	for i := 1; i < n; i++ {
		prev, cur := table.Closes[i-1], table.Closes[i]
		day := 0.0
		for k, j := range cols {
			day += weights[k] * (cur[j]/prev[j] - 1)
		}
		out[i-1] = day
	}
	return out
}

// MaxDrawdown is the deepest peak-to-trough loss of the compounded returns
func MaxDrawdown(returns []float64) float64 {
	value, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if dd := (peak - value) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}
