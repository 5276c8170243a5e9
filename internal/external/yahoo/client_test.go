package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// 2024-01-02, 2024-01-03, 2024-01-04 at 14:30 UTC
const chartJSON = `{"chart":{"result":[{
	"meta":{"symbol":"BTC-USD","currency":"USD","regularMarketPrice":%s},
	"timestamp":[1704205800,1704292200,1704378600],
	"indicators":{"quote":[{"close":[45000.5,null,44100.25]}]}
}],"error":null}}`

func newTestClient(baseURL string) *Client {
	hc := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	return NewClient(config.YahooConfig{BaseURL: baseURL}, hc, logger.Nop())
}

func chartServer(t *testing.T, marketPrice string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/BTC-USD", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		if check != nil {
			check(r)
		}
		w.Write([]byte(fmt.Sprintf(chartJSON, marketPrice)))
	}))
}

func TestDailyCloses(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	server := chartServer(t, "44000", func(r *http.Request) {
		assert.Equal(t, "1704067200", r.URL.Query().Get("period1"))
		assert.Equal(t, "1704412800", r.URL.Query().Get("period2"))
	})
	defer server.Close()

	points, err := newTestClient(server.URL).DailyCloses(context.Background(), "BTC-USD", from, to)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 45000.5, points[0].Close)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), points[1].Date)
	assert.Equal(t, "BTC-USD", points[1].Ticker)
}

func TestLastPrice(t *testing.T) {
	tests := []struct {
		name        string
		marketPrice string
		want        float64
	}{
		{"meta price", "44321.5", 44321.5},
		{"fallback to last close", "0", 44100.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chartServer(t, tt.marketPrice, func(r *http.Request) {
				assert.Equal(t, "5d", r.URL.Query().Get("range"))
			})
			defer server.Close()

			price, err := newTestClient(server.URL).LastPrice(context.Background(), "BTC-USD")
			require.NoError(t, err)
			assert.Equal(t, tt.want, price)
		})
	}
}

func TestChartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).LastPrice(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}
