package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// risk service.
type Metrics struct {
	Assessments        *prometheus.CounterVec // labels: outcome={success,error}
	AssessmentDuration prometheus.Histogram
	RiskIndex          prometheus.Histogram

	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: provider, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: provider
	RetryAttempts    *prometheus.CounterVec   // labels: op
	CacheLookups     *prometheus.CounterVec   // labels: op, result={hit,miss}
	StubMode         *prometheus.GaugeVec     // labels: provider; 1 when serving stub data

	// Deferred persistence metrics.
	PersistTasks *prometheus.CounterVec // labels: task, outcome={success,error,dropped}
	QueueDepth   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respira",
			Name:      "assessments_total",
			Help:      "Risk assessments by outcome.",
		}, []string{"outcome"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "respira",
			Name:      "assessment_duration_seconds",
			Help:      "End-to-end duration of a risk assessment.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RiskIndex: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "respira",
			Name:      "risk_index",
			Help:      "Distribution of computed risk indices.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1},
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respira",
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "respira",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respira",
			Name:      "retry_attempts_total",
			Help:      "Retried upstream calls by operation.",
		}, []string{"op"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respira",
			Name:      "cache_lookups_total",
			Help:      "Fetch cache lookups by operation and result.",
		}, []string{"op", "result"}),
		StubMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "respira",
			Name:      "stub_mode",
			Help:      "1 when a provider is serving deterministic stub data.",
		}, []string{"provider"}),
		PersistTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respira",
			Name:      "persist_tasks_total",
			Help:      "Deferred persistence tasks by kind and outcome.",
		}, []string{"task", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "respira",
			Name:      "persist_queue_depth",
			Help:      "Tasks currently waiting in the persistence queue.",
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Assessments,
		m.AssessmentDuration,
		m.RiskIndex,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.RetryAttempts,
		m.CacheLookups,
		m.StubMode,
		m.PersistTasks,
		m.QueueDepth,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
