package marketdata

import (
	"context"
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/external/tinvest"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/redis"
)

// EquitySource is the T-Invest surface used for equities
type EquitySource interface {
	InstrumentByTicker(ctx context.Context, ticker string) (*tinvest.Instrument, error)
	LastPrice(ctx context.Context, instrumentUID string) (float64, error)
	Beta(ctx context.Context, assetUID string) (float64, error)
	ForecastBy(ctx context.Context, instrumentUID string) (*tinvest.Consensus, error)
}

// CryptoSource quotes crypto pairs in USD
type CryptoSource interface {
	LastPrice(ctx context.Context, ticker string) (float64, error)
}

// QuoteService implements contracts.Quotes and contracts.AnalystForecasts
// on top of T-Invest (equities) and Yahoo (crypto), behind the Redis cache.
// ⭐ SSOT: live quotes are resolved here only
type QuoteService struct {
	equities EquitySource
	crypto   CryptoSource
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewQuoteService creates a quote service. cache may be nil.
func NewQuoteService(equities EquitySource, crypto CryptoSource, cache *redis.Cache, log *logger.Logger) *QuoteService {
	return &QuoteService{
		equities: equities,
		crypto:   crypto,
		cache:    cache,
		logger:   log.WithComponent("quotes"),
	}
}

var (
	_ contracts.Quotes           = (*QuoteService)(nil)
	_ contracts.AnalystForecasts = (*QuoteService)(nil)
)

func (s *QuoteService) instrument(ctx context.Context, ticker string) (tinvest.Instrument, error) {
	return redis.Remember(ctx, s.cache, redis.InstrumentKey(ticker), redis.TTLLong, func() (tinvest.Instrument, error) {
		inst, err := s.equities.InstrumentByTicker(ctx, ticker)
		if err != nil {
			return tinvest.Instrument{}, err
		}
		return *inst, nil
	})
}

// LastPrice returns the spot price: RUB for equities, USD for crypto
func (s *QuoteService) LastPrice(ctx context.Context, ticker string) (float64, error) {
	price, err := redis.Remember(ctx, s.cache, redis.LastPriceKey(ticker), redis.TTLShort, func() (float64, error) {
		if contracts.KindOf(ticker) == contracts.KindCrypto {
			return s.crypto.LastPrice(ctx, ticker)
		}
		inst, err := s.instrument(ctx, ticker)
		if err != nil {
			return 0, err
		}
		return s.equities.LastPrice(ctx, inst.UID)
	})
	if err != nil {
		return 0, fmt.Errorf("last price %s: %w", ticker, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("last price %s: %w", ticker, contracts.ErrDataUnavailable)
	}
	return price, nil
}

// LotSize returns the exchange lot; crypto is always 1
func (s *QuoteService) LotSize(ctx context.Context, ticker string) (int, error) {
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		return contracts.DefaultLotSize, nil
	}

	inst, err := s.instrument(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("lot size %s: %w", ticker, err)
	}
	if inst.Lot < 1 {
		return 0, fmt.Errorf("lot size %s: %w", ticker, contracts.ErrDataUnavailable)
	}
	return inst.Lot, nil
}

// Beta returns the equity beta from asset fundamentals; crypto is always DefaultBeta
func (s *QuoteService) Beta(ctx context.Context, ticker string) (float64, error) {
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		return contracts.DefaultBeta, nil
	}

	beta, err := redis.Remember(ctx, s.cache, redis.BetaKey(ticker), redis.TTLDaily, func() (float64, error) {
		inst, err := s.instrument(ctx, ticker)
		if err != nil {
			return 0, err
		}
		return s.equities.Beta(ctx, inst.AssetUID)
	})
	if err != nil {
		return 0, fmt.Errorf("beta %s: %w", ticker, err)
	}
	return beta, nil
}

// Consensus returns the analyst consensus of an equity
func (s *QuoteService) Consensus(ctx context.Context, ticker string) (contracts.Consensus, error) {
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		return contracts.Consensus{}, fmt.Errorf("consensus %s: %w", ticker, contracts.ErrDataUnavailable)
	}

	consensus, err := redis.Remember(ctx, s.cache, redis.ConsensusKey(ticker), redis.TTLMedium, func() (contracts.Consensus, error) {
		inst, err := s.instrument(ctx, ticker)
		if err != nil {
			return contracts.Consensus{}, err
		}
		raw, err := s.equities.ForecastBy(ctx, inst.UID)
		if err != nil {
			return contracts.Consensus{}, err
		}
		return contracts.Consensus{
			CurrentPrice:   raw.CurrentPrice.Float(),
			ConsensusPrice: raw.Consensus.Float(),
			PriceChangeRel: raw.PriceChangeRel.Float(),
		}, nil
	})
	if err != nil {
		return contracts.Consensus{}, fmt.Errorf("consensus %s: %w", ticker, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"ticker":           ticker,
		"consensus_price":  consensus.ConsensusPrice,
		"price_change_rel": consensus.PriceChangeRel,
	}).Debug("Consensus resolved")
	return consensus, nil
}
