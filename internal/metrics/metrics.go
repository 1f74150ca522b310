package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus series exported by the server.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SecondaryWritesTotal *prometheus.CounterVec
	TogglesTotal         *prometheus.CounterVec
	FeedBuildDuration    *prometheus.HistogramVec
}

// New registers all series on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipfeed_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clipfeed_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		SecondaryWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipfeed_secondary_writes_total",
				Help: "Best-effort secondary writes by task and outcome",
			},
			[]string{"task", "outcome"},
		),
		TogglesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipfeed_toggles_total",
				Help: "Like and follow toggles by kind and resulting state",
			},
			[]string{"kind", "state"},
		),
		FeedBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clipfeed_feed_build_seconds",
				Help:    "Time spent assembling a feed page",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"feed"},
		),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SecondaryWrite(task, outcome string) {
	if m == nil {
		return
	}
	m.SecondaryWritesTotal.WithLabelValues(task, outcome).Inc()
}

// Toggle records the state a like or follow toggle ended in.
func (m *Metrics) Toggle(kind string, on bool) {
	if m == nil {
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	m.TogglesTotal.WithLabelValues(kind, state).Inc()
}

// FeedBuild returns a func that records the elapsed time when called.
func (m *Metrics) FeedBuild(feed string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.FeedBuildDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	}
}
