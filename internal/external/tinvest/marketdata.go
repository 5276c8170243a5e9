package tinvest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// maxCandleSpan is the widest daily-candle window the gateway accepts per request
const maxCandleSpan = 365 * 24 * time.Hour

// LastPrices returns the latest price per instrument uid
func (c *Client) LastPrices(ctx context.Context, instrumentUIDs []string) (map[string]float64, error) {
	req := map[string]interface{}{
		"instrumentId":     instrumentUIDs,
		"instrumentStatus": "INSTRUMENT_STATUS_ALL",
	}

	var resp struct {
		LastPrices []LastPrice `json:"lastPrices"`
	}
	if err := c.call(ctx, c.cfg.BaseURL, "MarketDataService/GetLastPrices", req, &resp); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(resp.LastPrices))
	for _, lp := range resp.LastPrices {
		if lp.Price.IsZero() {
			continue
		}
		prices[lp.InstrumentUID] = lp.Price.Float()
	}
	return prices, nil
}

// LastPrice returns the latest price of one instrument
func (c *Client) LastPrice(ctx context.Context, instrumentUID string) (float64, error) {
	prices, err := c.LastPrices(ctx, []string{instrumentUID})
	if err != nil {
		return 0, err
	}
	price, ok := prices[instrumentUID]
	if !ok {
		return 0, fmt.Errorf("last price for %s: %w", instrumentUID, contracts.ErrDataUnavailable)
	}
	return price, nil
}

// DailyCloses returns daily closes in [from, to], splitting the range into
// gateway-sized windows
func (c *Client) DailyCloses(ctx context.Context, ticker, instrumentUID string, from, to time.Time) ([]contracts.PricePoint, error) {
	var points []contracts.PricePoint

	for start := from; start.Before(to); start = start.Add(maxCandleSpan) {
		end := start.Add(maxCandleSpan)
		if end.After(to) {
			end = to
		}

		candles, err := c.candles(ctx, instrumentUID, start, end)
		if err != nil {
			return nil, err
		}
		for _, candle := range candles {
			if candle.Close.IsZero() {
				continue
			}
			points = append(points, contracts.PricePoint{
				Ticker: ticker,
				Date:   truncateDay(candle.Time),
				Close:  candle.Close.Float(),
			})
		}
	}
	return points, nil
}

func (c *Client) candles(ctx context.Context, instrumentUID string, from, to time.Time) ([]Candle, error) {
	req := map[string]interface{}{
		"instrumentId": instrumentUID,
		"from":         from.UTC().Format(time.RFC3339),
		"to":           to.UTC().Format(time.RFC3339),
		"interval":     "CANDLE_INTERVAL_DAY",
	}

	var resp struct {
		Candles []Candle `json:"candles"`
	}
	if err := c.call(ctx, c.cfg.BaseURL, "MarketDataService/GetCandles", req, &resp); err != nil {
		return nil, err
	}
	return resp.Candles, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
