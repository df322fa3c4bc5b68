// Package metrics provides Prometheus instrumentation for the Sculpt
// server: HTTP request throughput and latency, realtime gateway activity,
// store query errors, and notification-cache efficiency. Metrics are
// exposed in Prometheus text format at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Realtime gateway metrics
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected websocket clients",
		},
	)

	WebsocketRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_rooms",
			Help: "Current number of non-empty rooms",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Total number of events published to rooms",
		},
		[]string{"event"},
	)

	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_events_delivered_total",
			Help: "Total number of event deliveries to individual connections",
		},
	)

	DeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_deliveries_dropped_total",
			Help: "Total number of deliveries skipped because the connection was stale or its queue was full",
		},
	)

	// Store metrics
	StoreQueryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Total number of store query errors",
		},
	)

	// Notification cache metrics
	NotificationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_cache_hits_total",
			Help: "Total number of notification list reads served from Redis",
		},
	)

	NotificationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_cache_misses_total",
			Help: "Total number of notification list reads that fell back to the database",
		},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
