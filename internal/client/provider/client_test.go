package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carter2099/best-bets/internal/config"
)

func testConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:             url,
		APIKey:              "secret",
		Timeout:             2 * time.Second,
		RateLimitWait:       5 * time.Millisecond,
		MaxRateLimitRetries: 3,
		Breaker:             config.BreakerConfig{ConsecutiveFailures: 2, Timeout: time.Minute},
	}
}

func TestGetJSONDecodesAndSendsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "/things/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"total": 42}`))
	}))
	defer srv.Close()

	c := New("holders", testConfig(srv.URL), WithAPIKeyHeader("X-API-Key"))
	var out struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/things/abc", &out))
	assert.Equal(t, int64(42), out.Total)
}

func TestGetJSONRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Breaker.ConsecutiveFailures = 10
	c := New("quote", cfg)
	var out []any
	require.NoError(t, c.GetJSON(context.Background(), "/x", &out))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetJSONGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRateLimitRetries = 2
	cfg.Breaker.ConsecutiveFailures = 10
	c := New("quote", cfg)
	err := c.GetJSON(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("liquidity", testConfig(srv.URL))
	ctx := context.Background()
	require.Error(t, c.GetJSON(ctx, "/x", nil))
	require.Error(t, c.GetJSON(ctx, "/x", nil))
	err := c.GetJSON(ctx, "/x", nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, gobreaker.StateOpen, c.Guard().State())
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New("quote", testConfig(srv.URL))
	for i := 0; i < 4; i++ {
		err := c.GetJSON(context.Background(), "/x", nil)
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, c.Guard().State())
}

func TestAPIErrorMatching(t *testing.T) {
	err := &APIError{Provider: "p", Status: 429, Body: "slow down"}
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "p API error (429): slow down", err.Error())
}
