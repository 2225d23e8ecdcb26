package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "powplant"

// Request outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeMalformed     = "malformed"
	OutcomeFieldNotFound = "field_not_found"
	OutcomeExhausted     = "exhausted"
	OutcomeOffloadFailed = "offload_failed"
	OutcomeFailed        = "failed"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	activeConnections  prometheus.Gauge
	acceptErrors       prometheus.Counter
	requests           *prometheus.CounterVec
	searchDuration     prometheus.Histogram
	achievedDifficulty prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "active_connections",
				Help:      "Number of connections currently holding an admission permit.",
			},
		),
		acceptErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "accept_errors_total",
				Help:      "Total number of transient accept errors.",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pow",
				Name:      "requests_total",
				Help:      "Total number of PoW requests by outcome.",
			},
			[]string{"outcome"},
		),
		searchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pow",
				Name:      "search_duration_seconds",
				Help:      "Duration of successful nonce searches.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~32s
			},
		),
		achievedDifficulty: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pow",
				Name:      "achieved_difficulty_bits",
				Help:      "Leading zero bits achieved by mined events.",
				Buckets:   prometheus.LinearBuckets(0, 4, 16),
			},
		),
	}

	m.Registry.MustRegister(
		m.activeConnections,
		m.acceptErrors,
		m.requests,
		m.searchDuration,
		m.achievedDifficulty,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionAdmitted() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnectionReleased() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) AcceptFailed() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

func (m *Metrics) RecordRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSearch(d time.Duration, pow uint32) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
	m.achievedDifficulty.Observe(float64(pow))
}
