package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

type fakeSeries map[string][]float64 // ticker → closes from day 1, 0 = no bar

func (f fakeSeries) DailyCloses(_ context.Context, ticker string, _, _ time.Time) ([]contracts.PricePoint, error) {
	closes, ok := f[ticker]
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}
	points := make([]contracts.PricePoint, 0, len(closes))
	for i, c := range closes {
		if c == 0 {
			continue
		}
		points = append(points, contracts.PricePoint{
			Ticker: ticker,
			Date:   time.Date(2024, 1, i+1, 14, 30, 0, 0, time.UTC),
			Close:  c,
		})
	}
	return points, nil
}

func newComparator(source SeriesSource) *Comparator {
	u := &contracts.Universe{Compare: contracts.CompareSpec{
		Sectors: map[string][]string{"Technology": {"AAA", "BBB", "CCC", "DDD"}},
		Crypto:  map[string]string{"BTC": "BTC-USD", "ETH": "ETH-USD"},
	}}
	return NewComparator(u, source, logger.Nop())
}

func TestCompare(t *testing.T) {
	source := fakeSeries{
		"AAA":     {100, 110, 120, 0},
		"BBB":     {50, 50, 60, 0},
		"DDD":     {0, 10, 20, 0}, // no close on the first joined date
		"BTC-USD": {0, 200, 220, 240},
	}

	result, err := newComparator(source).Compare(context.Background(), "Technology", "BTC")
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, result.Dates)
	assert.Equal(t, []float64{105, 120}, result.SectorValues)
	assert.Equal(t, []float64{100, 110}, result.CryptoValues)
	assert.Equal(t, 1.0, result.Correlation)
}

func TestCompareFlatSeriesHasZeroCorrelation(t *testing.T) {
	source := fakeSeries{
		"AAA":     {100, 100, 100},
		"BTC-USD": {200, 210, 190},
	}

	result, err := newComparator(source).Compare(context.Background(), "Technology", "BTC")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Correlation)
	assert.Len(t, result.Dates, 3)
}

func TestCompareErrors(t *testing.T) {
	source := fakeSeries{"AAA": {100, 101}}
	c := newComparator(source)

	tests := []struct {
		name   string
		sector string
		crypto string
		want   error
	}{
		{"unknown sector", "Mining", "BTC", contracts.ErrUnknownSector},
		{"unknown crypto", "Technology", "DOGE", contracts.ErrUnknownAsset},
		{"no crypto data", "Technology", "ETH", contracts.ErrDataUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compare(context.Background(), tt.sector, tt.crypto)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompareNoCommonDates(t *testing.T) {
	source := fakeSeries{
		"AAA":     {100, 101, 0, 0},
		"BTC-USD": {0, 0, 200, 210},
	}

	_, err := newComparator(source).Compare(context.Background(), "Technology", "BTC")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}
