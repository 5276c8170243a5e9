package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a TTL-bounded JSON cache in front of upstream calls
// ⭐ SSOT: cache helpers live here
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Remember returns the cached value for key or calls fn and caches its result.
// Cache read/write failures degrade to calling fn; errors from fn are never cached.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var cached T
	if c != nil {
		if found, err := c.Get(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	value, err := fn()
	if err != nil {
		return value, err
	}

	if c != nil {
		_ = c.Set(ctx, key, value, ttl)
	}
	return value, nil
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // last prices
	TTLMedium = 10 * time.Minute // consensus forecasts, FX
	TTLLong   = 1 * time.Hour    // instrument identifiers
	TTLDaily  = 24 * time.Hour   // lot sizes, betas
)

// Common cache key generators

func InstrumentKey(ticker string) string {
	return fmt.Sprintf("instrument:%s", strings.ToUpper(ticker))
}

func LastPriceKey(ticker string) string {
	return fmt.Sprintf("price:last:%s", strings.ToUpper(ticker))
}

func BetaKey(ticker string) string {
	return fmt.Sprintf("beta:%s", strings.ToUpper(ticker))
}

func ConsensusKey(ticker string) string {
	return fmt.Sprintf("consensus:%s", strings.ToUpper(ticker))
}

func ForecastKey(ticker string, date string) string {
	return fmt.Sprintf("mlforecast:%s:%s", strings.ToUpper(ticker), date)
}

func FXKey(pair string) string {
	return fmt.Sprintf("fx:%s", strings.ToUpper(pair))
}
