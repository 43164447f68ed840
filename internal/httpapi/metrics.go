package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the analyzer.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sseClients      prometheus.Gauge
	broadcastDrops  prometheus.Counter
	rateLimited     prometheus.Counter
	snapshotsSent   *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
	botDetections   *prometheus.CounterVec
	archiveErrors   prometheus.Counter
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "livepulse",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livepulse",
			Name:      "sse_clients",
			Help:      "Current connected SSE clients",
		}),
		broadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "broadcast_drops_total",
			Help:      "Number of snapshots dropped due to slow clients",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "http_rate_limited_total",
			Help:      "Number of HTTP requests rejected due to rate limiting",
		}),
		snapshotsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "snapshots_sent_total",
			Help:      "Number of snapshots delivered to clients",
		}, []string{"type"}),
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "events_processed_total",
			Help:      "Number of feed events processed",
		}, []string{"kind"}),
		botDetections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "bot_detections_total",
			Help:      "Number of bot classifications assigned",
		}, []string{"class"}),
		archiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livepulse",
			Name:      "archive_write_errors_total",
			Help:      "Number of chat archive write errors reported",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.sseClients,
		m.broadcastDrops,
		m.rateLimited,
		m.snapshotsSent,
		m.eventsProcessed,
		m.botDetections,
		m.archiveErrors,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records timing and status information.
func (m *Metrics) ObserveRequest(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

// IncSSEClients adjusts the SSE client gauge by delta.
func (m *Metrics) IncSSEClients(delta float64) {
	if m == nil {
		return
	}
	m.sseClients.Add(delta)
}

// IncBroadcastDrops increments the drop counter.
func (m *Metrics) IncBroadcastDrops() {
	if m == nil {
		return
	}
	m.broadcastDrops.Inc()
}

// IncRateLimited increments the rate limit counter.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// IncSnapshotsSent increments the sent counter for a snapshot type.
func (m *Metrics) IncSnapshotsSent(snapshotType string) {
	if m == nil {
		return
	}
	m.snapshotsSent.WithLabelValues(snapshotType).Inc()
}

// RecordEvent counts one processed feed event.
func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(kind).Inc()
}

// RecordBotDetection counts one classification decision.
func (m *Metrics) RecordBotDetection(class string) {
	if m == nil {
		return
	}
	m.botDetections.WithLabelValues(class).Inc()
}

// IncArchiveErrors increments the archive write error counter.
func (m *Metrics) IncArchiveErrors() {
	if m == nil {
		return
	}
	m.archiveErrors.Inc()
}
