package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// PurchaseCalculator turns final weights into whole-lot equity purchases and
// fractional crypto purchases.
// ⭐ SSOT: lot rounding and RUB/USD conversion of purchases live here only
type PurchaseCalculator struct {
	quotes     contracts.Quotes
	forecaster contracts.PriceForecaster
	logger     *logger.Logger
	metrics    *metrics.Recorder
}

// NewPurchaseCalculator creates a purchase calculator.
// forecaster may be nil, in which case crypto uses the spot price as forecast.
func NewPurchaseCalculator(quotes contracts.Quotes, forecaster contracts.PriceForecaster, log *logger.Logger, rec *metrics.Recorder) *PurchaseCalculator {
	return &PurchaseCalculator{
		quotes:     quotes,
		forecaster: forecaster,
		logger:     log.WithComponent("purchases"),
		metrics:    rec,
	}
}

// Calculate computes the purchase plan. A missing price, lot size or forecast skips
// only that asset; the rest of the plan is still produced.
func (c *PurchaseCalculator) Calculate(ctx context.Context, weights contracts.Weights, totalBudget, exchangeRate float64) (*contracts.PurchasePlan, error) {
	if exchangeRate <= 0 {
		return nil, fmt.Errorf("calculate purchases: invalid exchange rate %v", exchangeRate)
	}

	plan := &contracts.PurchasePlan{Purchases: make([]contracts.Purchase, 0, len(weights))}
	spent := decimal.Zero

	for _, w := range weights {
		if w.Value <= 0 {
			continue
		}

		var (
			purchase contracts.Purchase
			err      error
		)
		if contracts.KindOf(w.Ticker) == contracts.KindCrypto {
			purchase, err = c.crypto(ctx, w, totalBudget, exchangeRate)
		} else {
			purchase, err = c.equity(ctx, w, totalBudget)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WithFields(map[string]interface{}{
				"ticker": w.Ticker,
				"reason": err.Error(),
			}).Warn("Asset skipped")
			c.metrics.RecordSkipped("purchases", skipReason(err))
			continue
		}

		plan.Purchases = append(plan.Purchases, purchase)
		spent = spent.Add(decimal.NewFromFloat(purchase.Base().CostRUB))
	}

	plan.TotalAllocated = spent.Round(2).InexactFloat64()
	plan.RemainingBudget = decimal.NewFromFloat(totalBudget).Sub(spent).Round(2).InexactFloat64()

	c.logger.WithFields(map[string]interface{}{
		"purchases":        len(plan.Purchases),
		"total_allocated":  plan.TotalAllocated,
		"remaining_budget": plan.RemainingBudget,
	}).Info("Purchases calculated")

	return plan, nil
}

func (c *PurchaseCalculator) equity(ctx context.Context, w contracts.Weight, totalBudget float64) (contracts.Purchase, error) {
	price, err := c.quotes.LastPrice(ctx, w.Ticker)
	if err != nil {
		return nil, fmt.Errorf("last price: %w", err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("last price: %w: non-positive price", contracts.ErrDataUnavailable)
	}

	lotSize, err := c.quotes.LotSize(ctx, w.Ticker)
	if err != nil {
		return nil, fmt.Errorf("lot size: %w", err)
	}
	if lotSize < 1 {
		return nil, fmt.Errorf("lot size: %w: lot %d", contracts.ErrDataUnavailable, lotSize)
	}

	allocated := w.Value * totalBudget
	costPerLot := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(lotSize)))
	lots := decimal.NewFromFloat(allocated).Div(costPerLot).Floor().IntPart()

	return contracts.EquityPurchase{
		PurchaseBase: contracts.PurchaseBase{
			Ticker:       w.Ticker,
			TargetWeight: w.Value,
			AllocatedRUB: allocated,
			CostRUB:      costPerLot.Mul(decimal.NewFromInt(lots)).InexactFloat64(),
		},
		Lots:          int(lots),
		Shares:        int(lots) * lotSize,
		PricePerShare: price,
	}, nil
}

func (c *PurchaseCalculator) crypto(ctx context.Context, w contracts.Weight, totalBudget, exchangeRate float64) (contracts.Purchase, error) {
	spot, err := c.quotes.LastPrice(ctx, w.Ticker)
	if err != nil {
		return nil, fmt.Errorf("spot price: %w", err)
	}
	if spot <= 0 {
		return nil, fmt.Errorf("spot price: %w: non-positive price", contracts.ErrDataUnavailable)
	}

	forecast := c.forecastPrice(ctx, w.Ticker, spot)

	allocated := w.Value * totalBudget
	costUSD := allocated / exchangeRate

	return contracts.CryptoPurchase{
		PurchaseBase: contracts.PurchaseBase{
			Ticker:       w.Ticker,
			TargetWeight: w.Value,
			AllocatedRUB: allocated,
			CostRUB:      costUSD * exchangeRate,
		},
		Quantity:      costUSD / spot,
		PriceUSD:      forecast,
		CostUSD:       costUSD,
		ForecastPrice: forecast,
		CurrentPrice:  spot,
	}, nil
}

// forecastPrice returns the last model prediction, falling back to spot on any failure
func (c *PurchaseCalculator) forecastPrice(ctx context.Context, ticker string, spot float64) float64 {
	if c.forecaster == nil {
		return spot
	}

	preds, err := c.forecaster.Predict(ctx, ticker)
	if err == nil && len(preds) > 0 {
		last := preds[len(preds)-1]
		if last > 0 && !math.IsNaN(last) && !math.IsInf(last, 0) {
			return last
		}
	}

	log := c.logger.WithField("ticker", ticker)
	if err != nil {
		log = log.WithError(err)
	}
	log.Warn("Price forecast unavailable, using spot price")
	return spot
}

func skipReason(err error) string {
	if errors.Is(err, contracts.ErrDataUnavailable) {
		return "data_unavailable"
	}
	return "upstream_error"
}
