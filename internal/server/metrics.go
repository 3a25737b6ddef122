package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Estimation metrics
	estimationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homest_estimations_total",
			Help: "Total number of homography estimations",
		},
		[]string{"source", "outcome"}, // source: http, websocket; outcome: found, not_found, error
	)

	estimationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homest_estimation_duration_seconds",
			Help:    "Homography estimation duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"source"},
	)

	estimationPoints = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homest_estimation_points",
			Help:    "Number of correspondences per estimation",
			Buckets: []float64{4, 10, 50, 100, 500, 1000, 5000, 10000, 100000},
		},
		[]string{"source"},
	)

	estimationInlierRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homest_estimation_inlier_ratio",
			Help:    "Share of correspondences classified as inliers",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"source"},
	)

	estimationIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homest_estimation_iterations",
			Help:    "RANSAC hypotheses evaluated per estimation",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"source"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homest_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, points
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homest_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homest_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// observeEstimation records the outcome of one estimation.
func observeEstimation(source string, points int, found bool, ratio float64, iterations int, seconds float64) {
	outcome := "not_found"
	if found {
		outcome = "found"
		estimationInlierRatio.WithLabelValues(source).Observe(ratio)
	}
	estimationsTotal.WithLabelValues(source, outcome).Inc()
	estimationDuration.WithLabelValues(source).Observe(seconds)
	estimationPoints.WithLabelValues(source).Observe(float64(points))
	estimationIterations.WithLabelValues(source).Observe(float64(iterations))
}
