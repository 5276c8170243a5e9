package tinvest

import (
	"context"
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// InstrumentByTicker resolves a ticker on the configured class code (TQBR)
func (c *Client) InstrumentByTicker(ctx context.Context, ticker string) (*Instrument, error) {
	req := map[string]interface{}{
		"idType":    "INSTRUMENT_ID_TYPE_TICKER",
		"classCode": c.cfg.ClassCode,
		"id":        ticker,
	}

	var resp struct {
		Instrument Instrument `json:"instrument"`
	}
	if err := c.call(ctx, c.cfg.BaseURL, "InstrumentsService/GetInstrumentBy", req, &resp); err != nil {
		return nil, err
	}
	if resp.Instrument.UID == "" {
		return nil, fmt.Errorf("instrument %s: %w", ticker, contracts.ErrDataUnavailable)
	}
	return &resp.Instrument, nil
}

// Beta returns the asset's beta from its fundamentals
func (c *Client) Beta(ctx context.Context, assetUID string) (float64, error) {
	req := map[string]interface{}{
		"assets": []string{assetUID},
	}

	var resp struct {
		Fundamentals []struct {
			AssetUID string   `json:"assetUid"`
			Beta     *float64 `json:"beta"`
		} `json:"fundamentals"`
	}
	if err := c.call(ctx, c.cfg.BaseURL, "InstrumentsService/GetAssetFundamentals", req, &resp); err != nil {
		return 0, err
	}
	if len(resp.Fundamentals) == 0 || resp.Fundamentals[0].Beta == nil {
		return 0, fmt.Errorf("beta for asset %s: %w", assetUID, contracts.ErrDataUnavailable)
	}
	return *resp.Fundamentals[0].Beta, nil
}

// ForecastBy returns the analyst consensus for an instrument uid
func (c *Client) ForecastBy(ctx context.Context, instrumentUID string) (*Consensus, error) {
	req := map[string]interface{}{
		"instrumentId": instrumentUID,
	}

	var resp struct {
		Consensus *Consensus `json:"consensus"`
	}
	if err := c.call(ctx, c.forecastURL(), "InstrumentsService/GetForecastBy", req, &resp); err != nil {
		return nil, err
	}
	if resp.Consensus == nil {
		return nil, fmt.Errorf("consensus for %s: %w", instrumentUID, contracts.ErrDataUnavailable)
	}
	return resp.Consensus, nil
}
