package bundle

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsEndpoint is where the dev server exposes build metrics.
const MetricsEndpoint = "/__metrics"

// Metrics records dev-server rebuilds on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	builds   *prometheus.CounterVec
	duration prometheus.Histogram
	assets   prometheus.Gauge
}

// NewMetrics creates and registers the rebuild collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frame_builds_total",
				Help: "Builds run by the dev server, by outcome.",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "frame_build_duration_seconds",
				Help:    "Duration of successful builds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		assets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "frame_assets",
				Help: "Assets emitted by the last successful build.",
			},
		),
	}
	m.registry.MustRegister(m.builds, m.duration, m.assets)
	return m
}

// Observe records the outcome of one build.
func (m *Metrics) Observe(res *Result, err error) {
	if err != nil {
		m.builds.WithLabelValues("error").Inc()
		return
	}
	m.builds.WithLabelValues("success").Inc()
	m.duration.Observe(res.Duration.Seconds())
	m.assets.Set(float64(len(res.Assets)))
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
