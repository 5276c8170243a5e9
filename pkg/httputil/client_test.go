package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/logger"
)

func testClient() *Client {
	cfg := &config.Config{Env: "test", LogLevel: "error"}
	return New(cfg, logger.Nop())
}

func TestNewDefaults(t *testing.T) {
	client := testClient()

	require.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 2, client.retryConfig.MaxRetries)
	assert.Equal(t, 2*time.Second, client.retryConfig.InitialDelay)
	assert.Equal(t, 10*time.Second, client.retryConfig.MaxDelay)
	assert.True(t, client.retryConfig.Enabled)
}

func TestOptionsDoNotMutateReceiver(t *testing.T) {
	base := testClient()

	tuned := base.WithRetry(5, 50*time.Millisecond).ForService("tinvest")
	disabled := base.DisableRetry()

	assert.Equal(t, 5, tuned.retryConfig.MaxRetries)
	assert.Equal(t, "tinvest", tuned.service)
	assert.False(t, disabled.retryConfig.Enabled)

	assert.Equal(t, 2, base.retryConfig.MaxRetries)
	assert.True(t, base.retryConfig.Enabled)
	assert.Equal(t, "http", base.service)
}

func TestNewWithTimeout(t *testing.T) {
	client := NewWithTimeout(&config.Config{Env: "test"}, logger.Nop(), 5*time.Second)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Valute":{"USD":{"Value":92.5}}}`))
	}))
	defer server.Close()

	var payload struct {
		Valute map[string]struct {
			Value float64 `json:"Value"`
		} `json:"Valute"`
	}
	require.NoError(t, testClient().GetJSON(context.Background(), server.URL, &payload))
	assert.Equal(t, 92.5, payload.Valute["USD"].Value)
}

func TestGetJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`not here`))
	}))
	defer server.Close()

	var dest map[string]interface{}
	err := testClient().GetJSON(context.Background(), server.URL, &dest)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPostJSONRetriesWithBody(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"instrumentId":["uid-1"]}`, string(body))

		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient().WithRetry(3, 10*time.Millisecond)
	resp, err := client.PostJSON(context.Background(), server.URL, map[string]interface{}{
		"instrumentId": []string{"uid-1"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resp, err := testClient().WithRetry(2, time.Millisecond).Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient().WithRetry(5, time.Second).Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.statusCode))
		})
	}
}
