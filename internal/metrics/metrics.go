// Package metrics holds the Prometheus instrumentation of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ausflug_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ausflug_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ausflug_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Domain Metrics
	ReviewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ausflug_reviews_created_total",
			Help: "Total number of stored reviews",
		},
	)

	PhotoUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ausflug_photo_uploads_total",
			Help: "Photo uploads by outcome",
		},
		[]string{"result"}, // "stored", "failed", "rejected"
	)

	PushNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ausflug_push_notifications_total",
			Help: "Review push notifications by outcome",
		},
		[]string{"result"}, // "sent", "rejected", "error"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ausflug_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ausflug_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ausflug_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPhotoUploads counts stored, failed and rejected photos
func RecordPhotoUploads(result string, n int) {
	if n > 0 {
		PhotoUploads.WithLabelValues(result).Add(float64(n))
	}
}
