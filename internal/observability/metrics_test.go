package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveProvider("quote", "ok", time.Second)
	m.ObserveCycle("analysis", "ok", time.Second)
	m.AddIngested(3)
	m.SetRanked(4)
	m.SetPipelineState(2)
	m.ObserveScan("test", "completed")
	assert.NotNil(t, m.Handler())
}

func TestMetricsRecordAndServe(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveProvider("quote", "rate_limited", 10*time.Millisecond)
	m.ObserveProvider("quote", "rate_limited", 10*time.Millisecond)
	m.AddIngested(5)
	m.SetRanked(20)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("quote", "rate_limited")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TokensIngested))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.RankedTokens))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "best_bets_pipeline_ranked_tokens 20")
}
