package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// TradingDays annualizes daily statistics
const TradingDays = 252

// dailyReturns returns the (rows-1) × n matrix of simple returns p_t/p_{t-1} - 1
func dailyReturns(table *contracts.PriceTable) (*mat.Dense, error) {
	rows, n := len(table.Dates), len(table.Tickers)
	if rows < 3 {
		return nil, fmt.Errorf("%w: need at least 3 price rows, got %d", contracts.ErrEmptyInput, rows)
	}

	returns := mat.NewDense(rows-1, n, nil)
	for i := 1; i < rows; i++ {
		for j := 0; j < n; j++ {
			prev, cur := table.Closes[i-1][j], table.Closes[i][j]
			if prev <= 0 || math.IsNaN(prev) || math.IsNaN(cur) {
				return nil, fmt.Errorf("%w: invalid price for %s on %s",
					contracts.ErrEmptyInput, table.Tickers[j], table.Dates[i].Format("2006-01-02"))
			}
			returns.Set(i-1, j, cur/prev-1)
		}
	}
	return returns, nil
}

// sampleCovariance is the annualized sample covariance of daily returns
func sampleCovariance(returns *mat.Dense) *mat.SymDense {
	_, n := returns.Dims()
	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns, nil)
	cov.ScaleSym(TradingDays, cov)
	return cov
}

// historicalReturns is the annualized compounded (CAGR) return per column
func historicalReturns(table *contracts.PriceTable) []float64 {
	rows, n := len(table.Dates), len(table.Tickers)
	periods := float64(rows - 1)

	out := make([]float64, n)
	for j := 0; j < n; j++ {
		first, last := table.Closes[0][j], table.Closes[rows-1][j]
		out[j] = math.Pow(last/first, TradingDays/periods) - 1
	}
	return out
}
