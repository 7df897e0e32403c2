// Package observability provides Prometheus metrics for the pipeline and its providers.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "best_bets"

// Metrics is nil-safe: every recording method is a no-op on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec

	WorkerCycles   *prometheus.CounterVec
	CycleDuration  *prometheus.HistogramVec
	TokensIngested prometheus.Counter
	AnalysisResult *prometheus.CounterVec
	RankedTokens   prometheus.Gauge
	PipelineState  prometheus.Gauge

	ScansTotal *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg. A nil reg uses a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Provider calls by outcome (ok, rate_limited, not_found, open, error)",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Provider call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "breaker_state",
			Help:      "0 closed, 1 half-open, 2 open",
		}, []string{"provider"}),
		WorkerCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cycles_total",
			Help:      "Worker cycles by outcome (ok, idle, error)",
		}, []string{"worker", "outcome"}),
		CycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cycle_duration_seconds",
			Help:      "Worker cycle duration",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"worker"}),
		TokensIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tokens_ingested_total",
			Help:      "Tokens inserted by the ingestion worker",
		}),
		AnalysisResult: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_outcomes_total",
			Help:      "Analysis outcomes (no_pair, below_threshold, scored)",
		}, []string{"outcome"}),
		RankedTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ranked_tokens",
			Help:      "Tokens holding a rank after the last ranking cycle",
		}),
		PipelineState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "state",
			Help:      "0 stopped, 1 starting, 2 running, 3 stopping",
		}),
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "One-shot scans by type and status",
		}, []string{"type", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveProvider(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) SetBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(float64(state))
}

func (m *Metrics) ObserveCycle(worker, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.WorkerCycles.WithLabelValues(worker, outcome).Inc()
	m.CycleDuration.WithLabelValues(worker).Observe(d.Seconds())
}

func (m *Metrics) AddIngested(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TokensIngested.Add(float64(n))
}

func (m *Metrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.AnalysisResult.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetRanked(n int64) {
	if m == nil {
		return
	}
	m.RankedTokens.Set(float64(n))
}

func (m *Metrics) SetPipelineState(state int) {
	if m == nil {
		return
	}
	m.PipelineState.Set(float64(state))
}

func (m *Metrics) ObserveScan(scanType, status string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(scanType, status).Inc()
}
