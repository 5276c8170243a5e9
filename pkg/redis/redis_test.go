package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), TInvestRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, TInvestRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), YahooRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", 42.5, TTLShort))

	var result float64
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestRemember_CallsThroughWhenDisabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	calls := 0

	for i := 0; i < 2; i++ {
		value, err := Remember(context.Background(), cache, LastPriceKey("sber"), TTLShort, func() (float64, error) {
			calls++
			return 250.5, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 250.5, value)
	}

	assert.Equal(t, 2, calls)
}

func TestRemember_PropagatesError(t *testing.T) {
	boom := errors.New("upstream down")

	_, err := Remember(context.Background(), nil, FXKey("usdrub"), TTLMedium, func() (float64, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"InstrumentKey", InstrumentKey("sber"), "instrument:SBER"},
		{"LastPriceKey", LastPriceKey("BTC-USD"), "price:last:BTC-USD"},
		{"BetaKey", BetaKey("GAZP"), "beta:GAZP"},
		{"ConsensusKey", ConsensusKey("lkoh"), "consensus:LKOH"},
		{"ForecastKey", ForecastKey("btc-usd", "2026-10-19"), "mlforecast:BTC-USD:2026-10-19"},
		{"FXKey", FXKey("usdrub"), "fx:USDRUB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
