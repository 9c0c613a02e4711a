package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_http_requests_total",
			Help: "Total HTTP requests by method, route and status class",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamrelay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Broadcast Metrics
var (
	// PushesTotal counts push attempts by outcome (delivered, gone, failed)
	PushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_pushes_total",
			Help: "Total push attempts by result",
		},
		[]string{"result"},
	)

	// EvictionsTotal counts registry deletes triggered by gone pushes
	EvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_evictions_total",
			Help: "Total registry evictions after a gone push by status",
		},
		[]string{"status"},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_broadcasts_total",
			Help: "Total broadcasts by action",
		},
		[]string{"action"},
	)

	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teamrelay_broadcast_duration_seconds",
			Help:    "Time from first push to the join barrier",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// WebSocket Metrics
var (
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamrelay_websocket_connections_current",
			Help: "Current number of websocket connections on this node",
		},
	)

	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_websocket_connections_total",
			Help: "Total websocket connections by result",
		},
		[]string{"result"},
	)
)

// Ingestion Metrics
var (
	MessagesEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_messages_enqueued_total",
			Help: "Total messages handed to the queue by status",
		},
		[]string{"status"},
	)

	MessagesPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamrelay_messages_persisted_total",
			Help: "Total messages appended to the message log by status",
		},
		[]string{"status"},
	)

	ConsumerBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teamrelay_consumer_batch_size",
			Help:    "Number of queue items per consumed batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)
)

// StatusClass folds an HTTP status code to 2xx, 4xx or 5xx.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
