package cbr

import (
	"context"
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/redis"
)

// Client reads official exchange rates from the Central Bank of Russia daily feed
// ⭐ SSOT: FX rates come from this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache
	url        string
}

// NewClient creates a CBR client. cache may be nil.
func NewClient(cfg config.CBRConfig, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient.ForService("cbr"),
		logger:     log.WithComponent("cbr"),
		cache:      cache,
		url:        cfg.URL,
	}
}

type dailyResponse struct {
	Date   string `json:"Date"`
	Valute map[string]struct {
		CharCode string  `json:"CharCode"`
		Nominal  float64 `json:"Nominal"`
		Value    float64 `json:"Value"`
	} `json:"Valute"`
}

// USDRUB returns the official USD/RUB rate
func (c *Client) USDRUB(ctx context.Context) (float64, error) {
	return c.Rate(ctx, "USD")
}

// Rate returns the RUB price of one unit of the given currency
func (c *Client) Rate(ctx context.Context, code string) (float64, error) {
	return redis.Remember(ctx, c.cache, redis.FXKey(code+"RUB"), redis.TTLMedium, func() (float64, error) {
		var resp dailyResponse
		if err := c.httpClient.GetJSON(ctx, c.url, &resp); err != nil {
			return 0, fmt.Errorf("cbr daily rates: %w", err)
		}

		v, ok := resp.Valute[code]
		if !ok || v.Value <= 0 {
			return 0, fmt.Errorf("cbr rate %s: %w", code, contracts.ErrDataUnavailable)
		}

		nominal := v.Nominal
		if nominal <= 0 {
			nominal = 1
		}
		rate := v.Value / nominal

		c.logger.WithFields(map[string]interface{}{
			"currency": code,
			"rate":     rate,
			"date":     resp.Date,
		}).Debug("FX rate fetched")
		return rate, nil
	})
}
