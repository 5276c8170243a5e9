package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
)

const userAgent = "Mozilla/5.0 (compatible; sectorfolio/1.0)"

// Client reads daily bars and spot prices from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance calls happen in this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo chart client
func NewClient(cfg config.YahooConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient.ForService("yahoo"),
		logger:     log.WithComponent("yahoo"),
		baseURL:    cfg.BaseURL,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) chart(ctx context.Context, ticker string, params url.Values) (*chartResult, error) {
	params.Set("interval", "1d")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}

	var body chartResponse
	if err := httputil.DecodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w: %s", ticker, contracts.ErrDataUnavailable, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w: empty result", ticker, contracts.ErrDataUnavailable)
	}
	return &body.Chart.Result[0], nil
}

// DailyCloses returns daily closes in [from, to]; bars without a close are dropped
func (c *Client) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}
	return closes(ticker, result), nil
}

// LastPrice returns the regular market price, or the latest close when the
// meta price is missing
func (c *Client) LastPrice(ctx context.Context, ticker string) (float64, error) {
	params := url.Values{}
	params.Set("range", "5d")

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return 0, err
	}
	if result.Meta.RegularMarketPrice > 0 {
		return result.Meta.RegularMarketPrice, nil
	}

	points := closes(ticker, result)
	if len(points) == 0 {
		return 0, fmt.Errorf("yahoo last price %s: %w", ticker, contracts.ErrDataUnavailable)
	}
	return points[len(points)-1].Close, nil
}

func closes(ticker string, result *chartResult) []contracts.PricePoint {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	series := result.Indicators.Quote[0].Close

	points := make([]contracts.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(series) || series[i] == nil || *series[i] <= 0 {
			continue
		}
		t := time.Unix(ts, 0).UTC()
		points = append(points, contracts.PricePoint{
			Ticker: ticker,
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Close:  *series[i],
		})
	}
	return points
}
