// Package observability provides Prometheus metrics for the chat backend.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing, so components can be wired
// with metrics disabled.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// WebSocket metrics
	ActiveConnections prometheus.Gauge
	EventsSent        *prometheus.CounterVec
	EventsDropped     prometheus.Counter

	namespace string
}

// NewCollector creates a metrics collector with its own registry, so
// repeated construction in tests never double-registers.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry:  registry,
		namespace: namespace,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_active_connections",
				Help:      "Number of live WebSocket connections",
			},
		),
		EventsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_events_sent_total",
				Help:      "Total events delivered to WebSocket clients",
			},
			[]string{"event"},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_events_dropped_total",
				Help:      "Events dropped because a client could not keep up",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ActiveConnections,
		c.EventsSent,
		c.EventsDropped,
	)

	return c
}

// WatchCache exports cache counters as gauges backed by the cache's own
// bookkeeping. Each func is sampled at scrape time.
func (c *Collector) WatchCache(hits, misses, items func() float64) {
	if c == nil {
		return
	}
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: c.namespace,
				Name:      "cache_hits",
				Help:      "Cache hits since startup",
			},
			hits,
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: c.namespace,
				Name:      "cache_misses",
				Help:      "Cache misses since startup",
			},
			misses,
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: c.namespace,
				Name:      "cache_items",
				Help:      "Entries currently cached",
			},
			items,
		),
	)
}

// Handler exposes the collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ConnectionOpened records a new live connection.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.ActiveConnections.Inc()
}

// ConnectionClosed records a closed connection.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.ActiveConnections.Dec()
}

// EventSent records a delivered event.
func (c *Collector) EventSent(event string) {
	if c == nil {
		return
	}
	c.EventsSent.WithLabelValues(event).Inc()
}

// EventDropped records an event dropped for a slow client.
func (c *Collector) EventDropped() {
	if c == nil {
		return
	}
	c.EventsDropped.Inc()
}

// RequestObserved records one handled HTTP request.
func (c *Collector) RequestObserved(method, route, status string, seconds float64) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}
