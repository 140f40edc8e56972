// Package metrics exposes prometheus collectors for detection runs on a
// dedicated registry
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "visionkit"

// Metrics groups the detection collectors
type Metrics struct {
	reg *prometheus.Registry

	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	guardConflicts *prometheus.CounterVec
	batchSize      prometheus.Histogram
	frames         *prometheus.CounterVec
}

// New registers the collectors, plus go and process collectors, on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "requests_total",
			Help:      "Detection requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "request_duration_seconds",
			Help:      "Time from submission to resolved outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		guardConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "guard_conflicts_total",
			Help:      "Completions dropped because the outcome was already resolved.",
		}, []string{"kind"}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "batch_size",
			Help:      "Entries per batch submission.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "sequence_frames_total",
			Help:      "Frames submitted to sequence trackers.",
		}, []string{"kind"}),
	}
}

// ObserveRequest records one resolved request
func (m *Metrics) ObserveRequest(kind, outcome string, d time.Duration) {
	m.requests.WithLabelValues(kind, outcome).Inc()
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}

// GuardConflict records a suppressed duplicate completion
func (m *Metrics) GuardConflict(kind string) {
	m.guardConflicts.WithLabelValues(kind).Inc()
}

// ObserveBatch records the size of one batch
func (m *Metrics) ObserveBatch(n int) {
	m.batchSize.Observe(float64(n))
}

// ObserveFrame records one frame handed to a tracker
func (m *Metrics) ObserveFrame(kind string) {
	m.frames.WithLabelValues(kind).Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
