package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floro_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floro_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Segmentation metrics
	segmentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floro_segment_requests_total",
			Help: "Total number of segmentation requests",
		},
		[]string{"source", "status"}, // source: http, websocket
	)

	segmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floro_segment_duration_seconds",
			Help:    "Segmentation duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	wellsDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floro_wells_detected",
			Help:    "Number of wells found per request",
			Buckets: []float64{0, 1, 6, 12, 24, 48, 96, 384, 1536},
		},
		[]string{"source"},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floro_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floro_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floro_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floro_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// observeSegment records the outcome of one segmentation.
func observeSegment(source string, seconds float64, wells int, err error) {
	if err != nil {
		segmentRequestsTotal.WithLabelValues(source, "error").Inc()
		return
	}
	segmentRequestsTotal.WithLabelValues(source, "success").Inc()
	segmentDuration.WithLabelValues(source).Observe(seconds)
	wellsDetected.WithLabelValues(source).Observe(float64(wells))
}
