// Package server exposes homography estimation over HTTP and WebSocket.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/results"
)

// Server holds the HTTP server state. Estimators are created per request and
// per WebSocket connection, so a Server is safe for concurrent use.
type Server struct {
	estimator   homography.Config
	corsOrigin  string
	maxBodyMB   int64
	maxPoints   int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string
	MaxBodyMB  int64
	MaxPoints  int
	TimeoutSec int
	Estimator  homography.Config
	RateLimit  RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxPointsPerDay   int64
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ConfigResponse is returned by /config.
type ConfigResponse struct {
	Confidence        float64 `json:"confidence"`
	DistanceThreshold float64 `json:"distance_threshold"`
	MaxIterations     int     `json:"max_iterations"`
	Sampling          string  `json:"sampling"`
	MaxPoints         int     `json:"max_points,omitempty"`
}

// EstimateRequest is the body of POST /estimate: a correspondence document
// plus optional overrides of the server's estimator settings.
type EstimateRequest struct {
	correspondence.Document

	Confidence    *float64 `json:"confidence,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Seed          *uint64  `json:"seed,omitempty"`
	Sampling      string   `json:"sampling,omitempty"`
}

// EstimateResponse is returned by POST /estimate.
type EstimateResponse struct {
	Success bool            `json:"success"`
	Result  *results.Report `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewServer validates the estimator settings and creates a server.
func NewServer(config Config) (*Server, error) {
	est, err := homography.NewEstimator(config.Estimator)
	if err != nil {
		return nil, err
	}

	s := &Server{
		estimator:  est.Config(),
		corsOrigin: config.CORSOrigin,
		maxBodyMB:  config.MaxBodyMB,
		maxPoints:  config.MaxPoints,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxBodyMB <= 0 {
		s.maxBodyMB = 10
	}

	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxPointsPerDay,
		)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/config", s.corsMiddleware(s.configHandler))
	mux.HandleFunc("/estimate", s.corsMiddleware(s.rateLimitMiddleware(s.estimateHandler)))
	mux.HandleFunc("/ws/estimate", s.corsMiddleware(s.rateLimitMiddleware(s.estimateWebSocketHandler)))
	mux.Handle("/metrics", promhttp.Handler())
}
