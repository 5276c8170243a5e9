package tinvest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
)

const servicePrefix = "/tinkoff.public.invest.api.contract.v1."

// Client handles communication with the T-Invest REST gateway
// ⭐ SSOT: T-Invest API calls happen in this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.TInvestConfig
	limiter    *rate.Limiter
}

// NewClient creates a new T-Invest client. RPS <= 0 disables client-side throttling.
func NewClient(cfg config.TInvestConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS)
	}

	return &Client{
		httpClient: httpClient.ForService("tinvest"),
		logger:     log.WithComponent("tinvest"),
		cfg:        cfg,
		limiter:    limiter,
	}
}

// call POSTs a JSON request to service/method on baseURL and decodes the response into dest
func (c *Client) call(ctx context.Context, baseURL, method string, body, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	url := baseURL + servicePrefix + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if err := httputil.DecodeJSON(resp, dest); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %v", method, contracts.ErrDataUnavailable, err)
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) forecastURL() string {
	if c.cfg.Sandbox && c.cfg.SandboxURL != "" {
		return c.cfg.SandboxURL
	}
	return c.cfg.BaseURL
}
