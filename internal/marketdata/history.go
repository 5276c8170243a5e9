package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/external/tinvest"
	"github.com/wonny/sectorfolio/internal/marketdata/collector"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// HistoryCollector tops up stored history before it is read
type HistoryCollector interface {
	Collect(ctx context.Context, tickers []string, from, to time.Time) (*collector.Summary, error)
}

// PriceStore reads stored daily closes
type PriceStore interface {
	LoadPrices(ctx context.Context, tickers []string, from time.Time) ([]contracts.PricePoint, error)
}

// HistoryService implements contracts.PriceHistory: collect what is missing,
// then load and clean the stored closes.
type HistoryService struct {
	collector HistoryCollector
	store     PriceStore
	logger    *logger.Logger
	now       func() time.Time
}

// NewHistoryService creates a history service. collector may be nil, in which
// case only stored history is used.
func NewHistoryService(c HistoryCollector, store PriceStore, log *logger.Logger) *HistoryService {
	return &HistoryService{
		collector: c,
		store:     store,
		logger:    log.WithComponent("history"),
		now:       time.Now,
	}
}

var _ contracts.PriceHistory = (*HistoryService)(nil)

// PriceTable returns the cleaned close table of the last days calendar days.
// Columns follow the order of tickers.
func (h *HistoryService) PriceTable(ctx context.Context, tickers []string, days int) (*contracts.PriceTable, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("price table: %w: no tickers", contracts.ErrEmptyInput)
	}

	to := day(h.now())
	from := to.AddDate(0, 0, -days)

	if h.collector != nil {
		summary, err := h.collector.Collect(ctx, tickers, from, to)
		if err != nil {
			h.logger.WithError(err).Warn("History collection failed, using stored prices")
		} else if summary.Failed > 0 {
			h.logger.WithField("failed", summary.Failed).Warn("Some tickers could not be collected")
		}
	}

	points, err := h.store.LoadPrices(ctx, tickers, from)
	if err != nil {
		return nil, fmt.Errorf("price table: %w", err)
	}

	table := BuildPriceTable(points, tickers)
	h.logger.WithFields(map[string]interface{}{
		"requested": len(tickers),
		"tickers":   len(table.Tickers),
		"rows":      table.Rows(),
	}).Info("Price table built")

	if table.Empty() {
		return table, fmt.Errorf("price table: %w", contracts.ErrDataUnavailable)
	}
	return table, nil
}

// CandleSource serves T-Invest daily candles by instrument uid
type CandleSource interface {
	DailyCloses(ctx context.Context, ticker, instrumentUID string, from, to time.Time) ([]contracts.PricePoint, error)
}

// EquityHistory adapts T-Invest candles to the collector by resolving tickers
// through the cached instrument lookup
type EquityHistory struct {
	quotes  *QuoteService
	candles CandleSource
}

// NewEquityHistory creates the ticker-addressed equity history source
func NewEquityHistory(quotes *QuoteService, candles CandleSource) *EquityHistory {
	return &EquityHistory{quotes: quotes, candles: candles}
}

// DailyCloses implements collector.Source
func (e *EquityHistory) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error) {
	inst, err := e.quotes.instrument(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return e.candles.DailyCloses(ctx, ticker, inst.UID, from, to)
}

// SeriesRouter serves daily closes of any universe ticker, sending crypto
// identifiers to the crypto source and everything else to equities
type SeriesRouter struct {
	equities collector.Source
	crypto   collector.Source
}

// NewSeriesRouter creates a kind-routing close source
func NewSeriesRouter(equities, crypto collector.Source) *SeriesRouter {
	return &SeriesRouter{equities: equities, crypto: crypto}
}

// DailyCloses implements collector.Source
func (r *SeriesRouter) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error) {
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		return r.crypto.DailyCloses(ctx, ticker, from, to)
	}
	return r.equities.DailyCloses(ctx, ticker, from, to)
}

var (
	_ collector.Source = (*SeriesRouter)(nil)
	_ collector.Source = (*EquityHistory)(nil)
	_ CandleSource     = (*tinvest.Client)(nil)
)
