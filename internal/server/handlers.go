package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/results"
	"github.com/MeKo-Tech/homest/internal/version"
)

// errTooManyPoints is returned when a request exceeds the configured point limit.
var errTooManyPoints = errors.New("too many correspondences")

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// configHandler returns the estimator settings requests run with by default.
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, ConfigResponse{
		Confidence:        s.estimator.Confidence,
		DistanceThreshold: s.estimator.DistanceThreshold,
		MaxIterations:     s.estimator.MaxIterations,
		Sampling:          string(s.estimator.Sampling),
		MaxPoints:         s.maxPoints,
	})
}

// estimateHandler estimates a homography for a JSON correspondence set.
func (s *Server) estimateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyMB*1024*1024)

	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	job, err := s.prepare(&req, nil)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.ConsumePoints(getClientIP(r), job.set.Len()); err != nil {
			recordRateLimitHit(err)
			s.handleRateLimitError(w, err)
			return
		}
	}

	if err := r.Context().Err(); err != nil {
		s.writeErrorResponse(w, "Request cancelled", http.StatusServiceUnavailable)
		return
	}

	report, err := s.run("http", job)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, EstimateResponse{Success: true, Result: &report})
}

// estimationJob is a validated request ready to run.
type estimationJob struct {
	est *homography.Estimator
	set *correspondence.Set
}

// prepare validates req and picks its estimator. Requests without overrides
// run on shared when it is non-nil; otherwise a fresh estimator is built.
// Nothing is charged to quotas here, so rejected requests cost nothing.
func (s *Server) prepare(req *EstimateRequest, shared *homography.Estimator) (estimationJob, error) {
	set, err := req.ToSet()
	if err != nil {
		return estimationJob{}, fmt.Errorf("%w: %w", homography.ErrInvalidArgument, err)
	}
	if s.maxPoints > 0 && max(len(set.Pts1), len(set.Pts2)) > s.maxPoints {
		return estimationJob{}, fmt.Errorf("%w: %d exceeds the limit of %d",
			errTooManyPoints, max(len(set.Pts1), len(set.Pts2)), s.maxPoints)
	}
	if err := set.Validate(); err != nil {
		return estimationJob{}, err
	}

	est := shared
	if est == nil || req.hasOverrides() {
		cfg, err := s.requestConfig(req)
		if err != nil {
			return estimationJob{}, err
		}
		if est, err = homography.NewEstimator(cfg); err != nil {
			return estimationJob{}, err
		}
	}
	return estimationJob{est: est, set: set}, nil
}

// run estimates the homography for a prepared job and records metrics.
func (s *Server) run(source string, job estimationJob) (results.Report, error) {
	est, set := job.est, job.set

	start := time.Now()
	res, err := est.Estimate(set.Pts1, set.Pts2)
	duration := time.Since(start)
	if err != nil {
		estimationsTotal.WithLabelValues(source, "error").Inc()
		return results.Report{}, err
	}

	report := results.NewReport("", set.Pts1, set.Pts2, res, duration)
	if set.Truth != nil {
		report = report.WithTruth(*set.Truth, set.Pts1)
	}
	observeEstimation(source, set.Len(), res.Found(), report.InlierRatio, res.Iterations, duration.Seconds())

	slog.Debug("Estimation completed",
		"source", source,
		"points", set.Len(),
		"found", res.Found(),
		"inliers", res.NumInliers,
		"iterations", res.Iterations)
	return report, nil
}

// requestConfig applies the request's overrides to the server settings. An
// iteration override may only lower the configured cap.
func (s *Server) requestConfig(req *EstimateRequest) (homography.Config, error) {
	cfg := s.estimator
	if req.Confidence != nil {
		cfg.Confidence = *req.Confidence
	}
	if req.Threshold != nil {
		cfg.DistanceThreshold = *req.Threshold
	}
	if req.MaxIterations != nil {
		cfg.MaxIterations = min(*req.MaxIterations, s.estimator.MaxIterations)
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Sampling != "" {
		sampling, err := homography.ParseSampling(req.Sampling)
		if err != nil {
			return cfg, err
		}
		cfg.Sampling = sampling
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// statusForError maps estimation errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, homography.ErrInvalidArgument), errors.Is(err, homography.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, errTooManyPoints):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, EstimateResponse{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
