package cbr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
)

const dailyJSON = `{
	"Date": "2024-06-01T11:30:00+03:00",
	"Valute": {
		"USD": {"CharCode": "USD", "Nominal": 1, "Value": 89.7145},
		"JPY": {"CharCode": "JPY", "Nominal": 100, "Value": 57.2}
	}
}`

func newTestClient(url string) *Client {
	hc := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	return NewClient(config.CBRConfig{URL: url}, hc, nil, logger.Nop())
}

func TestUSDRUB(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyJSON))
	}))
	defer server.Close()

	rate, err := newTestClient(server.URL).USDRUB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 89.7145, rate)
}

func TestRateHonorsNominal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyJSON))
	}))
	defer server.Close()

	rate, err := newTestClient(server.URL).Rate(context.Background(), "JPY")
	require.NoError(t, err)
	assert.InDelta(t, 0.572, rate, 1e-12)
}

func TestRateMissingCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Valute": {}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).USDRUB(context.Background())
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestRateUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).USDRUB(context.Background())
	var statusErr *httputil.StatusError
	assert.ErrorAs(t, err, &statusErr)
}
