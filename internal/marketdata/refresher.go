package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// SectorStore reads and writes sector_data
type SectorStore interface {
	UpsertSectorData(ctx context.Context, data []SectorDatum) error
	LoadSectorData(ctx context.Context, tickers []string) (map[string]SectorDatum, error)
}

// RefreshResult summarizes a sector data refresh
type RefreshResult struct {
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped"`
}

// Refresher keeps sector_data current for every universe asset
type Refresher struct {
	universe *contracts.Universe
	quotes   contracts.Quotes
	store    SectorStore
	logger   *logger.Logger
	metrics  *metrics.Recorder
}

// NewRefresher creates a sector data refresher
func NewRefresher(u *contracts.Universe, quotes contracts.Quotes, store SectorStore, log *logger.Logger, rec *metrics.Recorder) *Refresher {
	return &Refresher{
		universe: u,
		quotes:   quotes,
		store:    store,
		logger:   log.WithComponent("refresher"),
		metrics:  rec,
	}
}

// Refresh fetches price, beta and lot of every asset and upserts them.
// Assets without a price are skipped. A missing beta becomes DefaultBeta and a
// missing lot becomes DefaultLotSize.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	result := &RefreshResult{Skipped: make([]string, 0)}
	data := make([]SectorDatum, 0, len(r.universe.AllTickers()))

	for _, sector := range r.universe.Sectors {
		for _, asset := range sector.Assets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			datum, err := r.fetch(ctx, sector.Name, asset.Ticker)
			if err != nil {
				r.logger.WithFields(map[string]interface{}{
					"ticker": asset.Ticker,
					"sector": sector.Name,
					"reason": err.Error(),
				}).Warn("Asset skipped")
				r.metrics.RecordSkipped("refresh", "no_price")
				result.Skipped = append(result.Skipped, asset.Ticker)
				continue
			}
			data = append(data, datum)
		}
	}

	if err := r.store.UpsertSectorData(ctx, data); err != nil {
		return nil, fmt.Errorf("refresh sector data: %w", err)
	}
	result.Updated = len(data)

	r.logger.WithFields(map[string]interface{}{
		"updated": result.Updated,
		"skipped": len(result.Skipped),
	}).Info("Sector data refreshed")
	return result, nil
}

func (r *Refresher) fetch(ctx context.Context, sector, ticker string) (SectorDatum, error) {
	price, err := r.quotes.LastPrice(ctx, ticker)
	if err != nil {
		return SectorDatum{}, err
	}

	datum := SectorDatum{
		Ticker:  ticker,
		Sector:  sector,
		Price:   price,
		Beta:    contracts.DefaultBeta,
		LotSize: contracts.DefaultLotSize,
	}
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		return datum, nil
	}

	if beta, err := r.quotes.Beta(ctx, ticker); err == nil {
		datum.Beta = beta
	} else if !errors.Is(err, contracts.ErrDataUnavailable) {
		r.logger.WithError(err).WithField("ticker", ticker).Warn("Beta lookup failed, using default")
	}

	if lot, err := r.quotes.LotSize(ctx, ticker); err == nil {
		datum.LotSize = lot
	} else if !errors.Is(err, contracts.ErrDataUnavailable) {
		r.logger.WithError(err).WithField("ticker", ticker).Warn("Lot lookup failed, using default")
	}
	return datum, nil
}
