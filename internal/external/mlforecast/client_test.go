package mlforecast

import (
	"context"
	"encoding/json"
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

func newTestClient(baseURL string, enabled bool) *Client {
	hc := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	return NewClient(config.MLForecastConfig{BaseURL: baseURL, Enabled: enabled}, hc, nil, logger.Nop())
}

func TestPredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BTC-USD", req.Ticker)
		assert.Equal(t, DefaultHorizon, req.NFuture)

		w.Write([]byte(`{"ticker":"BTC-USD","dates":["2024-06-02","2024-06-03"],"predictions":[67000.5,68000.25]}`))
	}))
	defer server.Close()

	preds, err := newTestClient(server.URL+"/", true).Predict(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, []float64{67000.5, 68000.25}, preds)
}

func TestPredictDisabled(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", false).Predict(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestPredictEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticker":"BTC-USD","dates":[],"predictions":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, true).Predict(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestPredictServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, true).Predict(context.Background(), "BTC-USD")
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
}
