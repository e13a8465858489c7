// Package metrics exposes Prometheus instrumentation for runs, layouts and
// playback sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recviz"

// Run outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeInvalid       = "invalid"
	OutcomeLimitExceeded = "limit_exceeded"
)

// Metrics holds every collector on its own registry, so several servers
// (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	callsPerRun    *prometheus.HistogramVec
	layoutDuration *prometheus.HistogramVec
	stepsTotal     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	evictedTotal   prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Simulation runs by algorithm and outcome.",
		}, []string{"algorithm", "outcome"}),
		callsPerRun: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calls_per_run",
			Help:      "Recursive calls recorded per successful run.",
			Buckets:   []float64{1, 4, 16, 32, 64, 128, 256},
		}, []string{"algorithm"}),
		layoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent computing tree layouts.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"algorithm"}),
		stepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step changes by source (manual, autoplay, seek, reset).",
		}, []string{"source"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Playback sessions currently held in memory.",
		}),
		evictedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Idle sessions removed by the janitor.",
		}),
	}
}

// Run records the outcome of a simulation request. calls is ignored unless
// the outcome is OutcomeOK.
func (m *Metrics) Run(algorithm, outcome string, calls int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(algorithm, outcome).Inc()
	if outcome == OutcomeOK {
		m.callsPerRun.WithLabelValues(algorithm).Observe(float64(calls))
	}
}

// LayoutTimer starts timing one layout; call the returned func when done.
func (m *Metrics) LayoutTimer(algorithm string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.layoutDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
	}
}

// Step counts a step change.
func (m *Metrics) Step(source string) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(source).Inc()
}

// SessionOpened and SessionClosed track the live session gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

// Evicted counts sessions removed for idleness.
func (m *Metrics) Evicted(n int) {
	if m != nil && n > 0 {
		m.evictedTotal.Add(float64(n))
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
