package mlforecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/redis"
)

// DefaultHorizon is the number of future daily prices requested
const DefaultHorizon = 30

// Client calls the price forecasting service. The model itself is opaque:
// ticker in, future price sequence out.
// ⭐ SSOT: ML forecasts come from this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache
	baseURL    string
	enabled    bool
	horizon    int
}

// NewClient creates a forecast client. cache may be nil.
func NewClient(cfg config.MLForecastConfig, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient.ForService("mlforecast"),
		logger:     log.WithComponent("mlforecast"),
		cache:      cache,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		enabled:    cfg.Enabled,
		horizon:    DefaultHorizon,
	}
}

type predictRequest struct {
	Ticker  string `json:"ticker"`
	NFuture int    `json:"n_future"`
}

// Prediction is the forecasting service response
type Prediction struct {
	Ticker      string    `json:"ticker"`
	Dates       []string  `json:"dates"`
	Predictions []float64 `json:"predictions"`
}

// Predict returns the forecast price sequence for a ticker.
// Forecasts are cached per ticker per day.
func (c *Client) Predict(ctx context.Context, ticker string) ([]float64, error) {
	if !c.enabled {
		return nil, fmt.Errorf("ml forecast %s: %w: service disabled", ticker, contracts.ErrDataUnavailable)
	}

	key := redis.ForecastKey(ticker, time.Now().UTC().Format("2006-01-02"))
	pred, err := redis.Remember(ctx, c.cache, key, redis.TTLDaily, func() (Prediction, error) {
		return c.predict(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}
	return pred.Predictions, nil
}

func (c *Client) predict(ctx context.Context, ticker string) (Prediction, error) {
	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+"/predict", predictRequest{Ticker: ticker, NFuture: c.horizon})
	if err != nil {
		return Prediction{}, fmt.Errorf("ml forecast %s: %w", ticker, err)
	}

	var pred Prediction
	if err := httputil.DecodeJSON(resp, &pred); err != nil {
		return Prediction{}, fmt.Errorf("ml forecast %s: %w", ticker, err)
	}
	if len(pred.Predictions) == 0 {
		return Prediction{}, fmt.Errorf("ml forecast %s: %w: empty prediction", ticker, contracts.ErrDataUnavailable)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":  ticker,
		"horizon": len(pred.Predictions),
		"last":    pred.Predictions[len(pred.Predictions)-1],
	}).Debug("Price forecast received")
	return pred, nil
}
