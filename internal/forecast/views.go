package forecast

import (
	"context"
	"math"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// ViewLoader builds the absolute return views fed to the optimizer:
// analyst consensus for equities, ML price forecasts for crypto.
// ⭐ SSOT: return view construction lives here only
type ViewLoader struct {
	analysts   contracts.AnalystForecasts
	forecaster contracts.PriceForecaster
	quotes     contracts.Quotes
	logger     *logger.Logger
	metrics    *metrics.Recorder
}

// NewViewLoader creates a view loader. forecaster may be nil.
func NewViewLoader(analysts contracts.AnalystForecasts, forecaster contracts.PriceForecaster, quotes contracts.Quotes, log *logger.Logger, rec *metrics.Recorder) *ViewLoader {
	return &ViewLoader{
		analysts:   analysts,
		forecaster: forecaster,
		quotes:     quotes,
		logger:     log.WithComponent("views"),
		metrics:    rec,
	}
}

// LoadViews returns one view per ticker, rounded to 3 decimals.
// A missing forecast substitutes a 0 view; the substitution is logged.
func (l *ViewLoader) LoadViews(ctx context.Context, tickers []string) map[string]float64 {
	views := make(map[string]float64, len(tickers))

	for _, ticker := range tickers {
		var (
			view float64
			ok   bool
		)
		if contracts.KindOf(ticker) == contracts.KindCrypto {
			view, ok = l.cryptoView(ctx, ticker)
		} else {
			view, ok = l.equityView(ctx, ticker)
		}

		if !ok {
			l.metrics.RecordSkipped("views", "default_view")
			view = 0
		}
		views[ticker] = round3(view)
	}

	l.logger.WithField("views", len(views)).Debug("Return views loaded")
	return views
}

// equityView is the analyst consensus change converted from percent to a fraction
func (l *ViewLoader) equityView(ctx context.Context, ticker string) (float64, bool) {
	consensus, err := l.analysts.Consensus(ctx, ticker)
	if err != nil {
		l.logger.WithError(err).WithField("ticker", ticker).Warn("Analyst consensus unavailable, using 0 view")
		return 0, false
	}
	return consensus.PriceChangeRel / 100, true
}

// cryptoView is (last prediction − spot) / spot
func (l *ViewLoader) cryptoView(ctx context.Context, ticker string) (float64, bool) {
	log := l.logger.WithField("ticker", ticker)

	current, err := l.quotes.LastPrice(ctx, ticker)
	if err != nil || current <= 0 {
		log.Warn("Spot price unavailable, using 0 view")
		return 0, false
	}
	if l.forecaster == nil {
		return 0, false
	}

	preds, err := l.forecaster.Predict(ctx, ticker)
	if err != nil || len(preds) == 0 {
		log.Warn("Price forecast unavailable, using 0 view")
		return 0, false
	}

	return (preds[len(preds)-1] - current) / current, true
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}
