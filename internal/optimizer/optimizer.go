package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// Config holds optimizer parameters
type Config struct {
	RiskFreeRate float64
	Tau          float64
	Cutoff       float64 // weights below this become 0
	Rounding     int     // decimals kept in cleaned weights
}

// DefaultConfig returns the default optimizer parameters
func DefaultConfig() Config {
	return Config{
		RiskFreeRate: 0.02,
		Tau:          DefaultTau,
		Cutoff:       1e-4,
		Rounding:     5,
	}
}

// Report carries the optimizer's diagnostics for one run
type Report struct {
	Tickers           []string           `json:"tickers"`
	HistoricalReturns map[string]float64 `json:"mean_historical_return"`
	PriorReturns      map[string]float64 `json:"prior_returns"`
	PosteriorReturns  map[string]float64 `json:"posterior_returns"`
	Weights           contracts.Weights  `json:"weights"`
	ExpectedReturn    float64            `json:"expected_return"`
	Volatility        float64            `json:"volatility"`
	Sharpe            float64            `json:"sharpe"`
	Error             string             `json:"error,omitempty"`
}

// Optimizer is the ReturnOptimizer: Black-Litterman posterior returns fed to a capped
// max-Sharpe solver.
// ⭐ SSOT: return optimization lives here only
type Optimizer struct {
	config  Config
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// New creates a new optimizer
func New(cfg Config, log *logger.Logger, rec *metrics.Recorder) *Optimizer {
	return &Optimizer{
		config:  cfg,
		logger:  log.WithComponent("optimizer"),
		metrics: rec,
	}
}

// Optimize returns cleaned max-Sharpe weights for the tickers present in both the price
// table and the views. Any failure is logged and yields empty weights; the caller decides
// whether to fall back.
func (o *Optimizer) Optimize(ctx context.Context, table *contracts.PriceTable, views map[string]float64, maxShare float64) (contracts.Weights, *Report) {
	start := time.Now()
	report, err := o.run(ctx, table, views, maxShare)
	o.metrics.RecordStage("optimize", time.Since(start).Seconds())

	if err != nil {
		o.logger.WithError(err).Error("Portfolio optimization failed")
		if report == nil {
			report = &Report{}
		}
		report.Error = err.Error()
		report.Weights = contracts.Weights{}
		return contracts.Weights{}, report
	}

	o.logger.WithFields(map[string]interface{}{
		"assets":     len(report.Weights),
		"sharpe":     report.Sharpe,
		"volatility": report.Volatility,
		"duration":   time.Since(start),
	}).Info("Portfolio optimized")

	return report.Weights, report
}

func (o *Optimizer) run(ctx context.Context, table *contracts.PriceTable, views map[string]float64, maxShare float64) (*Report, error) {
	if table.Empty() {
		return nil, fmt.Errorf("%w: price table is empty", contracts.ErrEmptyInput)
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("%w: no return views", contracts.ErrEmptyInput)
	}

	common := make([]string, 0, len(table.Tickers))
	for _, t := range table.Tickers {
		if _, ok := views[t]; ok {
			common = append(common, t)
		}
	}
	if len(common) == 0 {
		return nil, fmt.Errorf("%w: no common tickers between prices and views", contracts.ErrEmptyInput)
	}

	table = table.Select(common)
	q := make([]float64, len(common))
	for i, t := range common {
		q[i] = views[t]
	}

	report := &Report{Tickers: common}

	returns, err := dailyReturns(table)
	if err != nil {
		return report, err
	}
	cov := sampleCovariance(returns)
	report.HistoricalReturns = byTicker(common, historicalReturns(table))

	prior, posterior, err := blackLitterman(cov, q, o.config.Tau)
	if err != nil {
		return report, err
	}
	report.PriorReturns = byTicker(common, prior)
	report.PosteriorReturns = byTicker(common, posterior)

	raw, err := maxSharpe(ctx, posterior, cov, o.config.RiskFreeRate, maxShare)
	if err != nil {
		return report, err
	}

	report.ExpectedReturn, report.Volatility, report.Sharpe = performance(raw, posterior, cov, o.config.RiskFreeRate)
	report.Weights = cleanWeights(common, raw, o.config.Cutoff, o.config.Rounding)
	if report.Weights.Empty() {
		return report, fmt.Errorf("%w: all weights below cutoff", contracts.ErrOptimization)
	}
	return report, nil
}

// cleanWeights zeroes weights below cutoff, rounds the rest, and drops zeros
func cleanWeights(tickers []string, raw []float64, cutoff float64, rounding int) contracts.Weights {
	scale := math.Pow10(rounding)
	out := make(contracts.Weights, 0, len(raw))
	for i, w := range raw {
		if math.Abs(w) < cutoff {
			continue
		}
		rounded := math.Round(w*scale) / scale
		if rounded <= 0 {
			continue
		}
		out = append(out, contracts.Weight{Ticker: tickers[i], Value: rounded})
	}
	return out
}

// performance returns expected return, volatility and Sharpe ratio of w
func performance(w, mu []float64, cov *mat.SymDense, rf float64) (float64, float64, float64) {
	v := mat.NewVecDense(len(w), w)
	ret := mat.Dot(v, mat.NewVecDense(len(mu), mu))
	vol := math.Sqrt(mat.Inner(v, cov, v))
	sharpe := 0.0
	if vol > 0 {
		sharpe = (ret - rf) / vol
	}
	return ret, vol, sharpe
}

func byTicker(tickers []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	for i, t := range tickers {
		out[t] = values[i]
	}
	return out
}
