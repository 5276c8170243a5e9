package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
)

func TestHistoricalVaR(t *testing.T) {
	returns := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		returns = append(returns, float64(i-50)/1000) // -0.049 .. 0.050
	}

	got := HistoricalVaR(returns, 0.95)
	assert.Equal(t, 0.95, got.Confidence)
	assert.InDelta(t, 0.044, got.VaR, 1e-9)
	// mean of the six worst: -0.049 .. -0.044
	assert.InDelta(t, 0.0465, got.CVaR, 1e-9)

	assert.Equal(t, VaRResult{Confidence: 0.99}, HistoricalVaR(nil, 0.99))
}

func TestHistoricalVaRNoLosses(t *testing.T) {
	got := HistoricalVaR([]float64{0.01, 0.02, 0.03}, 0.95)
	assert.Zero(t, got.VaR)
	assert.Zero(t, got.CVaR)
}

func TestParametricVaR(t *testing.T) {
	returns := []float64{-0.02, 0.02, -0.02, 0.02}
	got := ParametricVaR(returns, 0.95)

	// mean 0, sample std ≈ 0.023094
	assert.InDelta(t, 1.6449*0.023094, got.VaR, 1e-4)
	assert.Greater(t, got.CVaR, got.VaR)

	assert.Zero(t, ParametricVaR([]float64{0.01}, 0.95).VaR)
}

func TestMaxDrawdown(t *testing.T) {
	// 1 → 2 → 1 → 0.5 → 1
	assert.InDelta(t, 0.75, MaxDrawdown([]float64{1.0, -0.5, -0.5, 1.0}), 1e-9)
	assert.Zero(t, MaxDrawdown([]float64{0.1, 0.2}))
	assert.Zero(t, MaxDrawdown(nil))
}

func table(rows int, series map[string]func(i int) float64, tickers ...string) *contracts.PriceTable {
	t := &contracts.PriceTable{Tickers: tickers}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		t.Dates = append(t.Dates, start.AddDate(0, 0, i))
		row := make([]float64, len(tickers))
		for j, ticker := range tickers {
			row[j] = series[ticker](i)
		}
		t.Closes = append(t.Closes, row)
	}
	return t
}

func TestAssess(t *testing.T) {
	tbl := table(41, map[string]func(int) float64{
		"FLAT": func(int) float64 { return 100 },
		"SAW": func(i int) float64 {
			if i%2 == 0 {
				return 100
			}
			return 90
		},
	}, "FLAT", "SAW")

	weights := contracts.Weights{
		{Ticker: "FLAT", Value: 0.4},
		{Ticker: "SAW", Value: 0.4},
		{Ticker: "MISSING", Value: 0.2},
	}

	report, err := Assess(tbl, weights)
	require.NoError(t, err)

	assert.Equal(t, 40, report.Observations)
	assert.InDelta(t, 0.8, report.Coverage, 1e-9)
	require.Len(t, report.Historical, 2)
	require.Len(t, report.Parametric, 2)

	// half of SAW's -10% days
	assert.InDelta(t, 0.05, report.Historical[0].VaR, 1e-9)
	assert.InDelta(t, 0.05, report.MaxDrawdown, 1e-9)
	assert.Greater(t, report.Volatility, 0.0)
}

func TestAssessErrors(t *testing.T) {
	flat := map[string]func(int) float64{"A": func(int) float64 { return 1 }}

	_, err := Assess(table(5, flat, "A"), contracts.Weights{{Ticker: "A", Value: 1}})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Assess(table(30, flat, "A"), contracts.Weights{{Ticker: "B", Value: 1}})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Assess(table(30, flat, "A"), contracts.Weights{{Ticker: "A", Value: 1}}, 1.5)
	assert.Error(t, err)
}
