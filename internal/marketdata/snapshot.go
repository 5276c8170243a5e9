package marketdata

import (
	"context"
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// SnapshotService implements contracts.SectorSnapshot: stored sector_data for
// equities and a live spot price for crypto
type SnapshotService struct {
	universe *contracts.Universe
	store    SectorStore
	quotes   contracts.Quotes
	logger   *logger.Logger
}

// NewSnapshotService creates a sector snapshot service
func NewSnapshotService(u *contracts.Universe, store SectorStore, quotes contracts.Quotes, log *logger.Logger) *SnapshotService {
	return &SnapshotService{
		universe: u,
		store:    store,
		quotes:   quotes,
		logger:   log.WithComponent("snapshot"),
	}
}

var _ contracts.SectorSnapshot = (*SnapshotService)(nil)

// Snapshot returns the assets of the requested sectors in universe order.
// Unknown sectors are absent from the result; assets without data are dropped.
func (s *SnapshotService) Snapshot(ctx context.Context, sectors []string) (contracts.Sectors, error) {
	out := make(contracts.Sectors, len(sectors))

	var equityTickers []string
	for _, name := range sectors {
		if name != contracts.CryptoSector {
			equityTickers = append(equityTickers, s.universe.Tickers(name)...)
		}
	}

	stored := map[string]SectorDatum{}
	if len(equityTickers) > 0 {
		var err error
		stored, err = s.store.LoadSectorData(ctx, equityTickers)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}

	for _, name := range sectors {
		spec, ok := s.universe.Sector(name)
		if !ok {
			s.logger.WithField("sector", name).Warn("Unknown sector in snapshot")
			continue
		}
		if _, done := out[name]; done {
			continue
		}

		assets := make([]contracts.Asset, 0, len(spec.Assets))
		for _, a := range spec.Assets {
			if name == contracts.CryptoSector {
				price, err := s.quotes.LastPrice(ctx, a.Ticker)
				if err != nil {
					s.logger.WithFields(map[string]interface{}{
						"ticker": a.Ticker,
						"reason": err.Error(),
					}).Warn("Asset skipped")
					continue
				}
				assets = append(assets, contracts.NewCrypto(a.Ticker, price))
				continue
			}

			datum, ok := stored[a.Ticker]
			if !ok || datum.Price <= 0 {
				s.logger.WithFields(map[string]interface{}{
					"ticker": a.Ticker,
					"reason": "no sector data",
				}).Warn("Asset skipped")
				continue
			}
			assets = append(assets, contracts.NewEquity(a.Ticker, datum.Price, datum.LotSize, datum.Beta))
		}
		out[name] = assets
	}

	return out, nil
}
