package collector

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

type fakeSource struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]time.Time // ticker → requested from
}

func newFakeSource(fail ...string) *fakeSource {
	f := &fakeSource{fail: map[string]bool{}, calls: map[string]time.Time{}}
	for _, t := range fail {
		f.fail[t] = true
	}
	return f
}

func (f *fakeSource) DailyCloses(_ context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error) {
	f.mu.Lock()
	f.calls[ticker] = from
	f.mu.Unlock()

	if f.fail[ticker] {
		return nil, contracts.ErrDataUnavailable
	}
	var points []contracts.PricePoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		points = append(points, contracts.PricePoint{Date: d, Close: 100})
	}
	return points, nil
}

type fakeStore struct {
	mu     sync.Mutex
	latest map[string]time.Time
	saved  map[string]int
}

func (s *fakeStore) SavePrices(_ context.Context, points []contracts.PricePoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.saved[p.Ticker]++
	}
	return len(points), nil
}

func (s *fakeStore) LatestDates(context.Context, []string) (map[string]time.Time, error) {
	return s.latest, nil
}

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestCollect(t *testing.T) {
	equities := newFakeSource("YNDX")
	crypto := newFakeSource()
	store := &fakeStore{
		latest: map[string]time.Time{"GAZP": day(8), "LKOH": day(10)},
		saved:  map[string]int{},
	}
	c := NewCollector(equities, crypto, store, Config{Workers: 3}, logger.Nop(), nil)

	summary, err := c.Collect(context.Background(), []string{"SBER", "GAZP", "LKOH", "YNDX", "BTC-USD"}, day(1), day(10))
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 10+2+10, summary.Points)

	assert.Equal(t, 10, store.saved["SBER"])
	assert.Equal(t, 2, store.saved["GAZP"], "resumes after the latest stored close")
	assert.Equal(t, 10, store.saved["BTC-USD"])
	assert.Equal(t, day(9), equities.calls["GAZP"])

	_, asked := equities.calls["LKOH"]
	assert.False(t, asked, "up-to-date tickers are not fetched")
	_, routed := equities.calls["BTC-USD"]
	assert.False(t, routed, "crypto goes to the crypto source")

	tickers := make([]string, 0, len(summary.Results))
	for _, r := range summary.Results {
		tickers = append(tickers, r.Ticker)
		if r.Ticker == "YNDX" {
			assert.True(t, errors.Is(r.Error, contracts.ErrDataUnavailable))
		}
	}
	sort.Strings(tickers)
	assert.Equal(t, []string{"BTC-USD", "GAZP", "LKOH", "SBER", "YNDX"}, tickers)
}

func TestCollectCancelled(t *testing.T) {
	store := &fakeStore{latest: map[string]time.Time{}, saved: map[string]int{}}
	c := NewCollector(newFakeSource(), newFakeSource(), store, Config{Workers: 2}, logger.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := c.Collect(ctx, []string{"SBER", "GAZP"}, day(1), day(3))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Empty(t, store.saved)
}
