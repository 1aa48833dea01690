// Package metrics defines the Prometheus collectors of the lookup service
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "raptor"

// Metrics holds all collectors. Each instance has its own registry, so
// several services can live in one process (and in one test binary).
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestsInFlight prometheus.Gauge
	LookupDuration   *prometheus.HistogramVec
	LookupMatches    prometheus.Histogram
	IndexKeys        prometheus.Gauge
	IndexValues      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by status code.",
			},
			[]string{"status"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Fuzzy lookup latency in seconds by edit distance.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"distance"},
		),
		LookupMatches: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_matches",
				Help:      "Number of keys returned per lookup.",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 1000},
			},
		),
		IndexKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_keys",
				Help:      "Number of keys in the loaded index.",
			},
		),
		IndexValues: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_values",
				Help:      "Number of identifiers in the loaded index.",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestsInFlight,
		m.LookupDuration,
		m.LookupMatches,
		m.IndexKeys,
		m.IndexValues,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
