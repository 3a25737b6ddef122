// Package homography estimates planar homographies from point correspondences
// that contain outliers. RANSAC over minimal four-point samples finds the
// consensus set and a Hartley-normalized DLT refits the homography to it.
package homography

import (
	"fmt"
	"log/slog"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
	"github.com/MeKo-Tech/homest/internal/mempool"
)

const (
	DefaultConfidence        = 0.99
	DefaultDistanceThreshold = 3.0
	DefaultMaxIterations     = 10000
)

// Config holds the estimator parameters. It is copied into the estimator and
// not changed afterwards.
type Config struct {
	// Confidence is the desired probability of drawing at least one
	// all-inlier sample. Must be in (0, 1).
	Confidence float64
	// DistanceThreshold is the largest symmetric transfer error, in input
	// units, that still counts as an inlier.
	DistanceThreshold float64
	// MaxIterations caps the number of RANSAC hypotheses.
	MaxIterations int
	// Seed initializes the sampler. Zero seeds from the clock.
	Seed uint64
	// Sampling selects distinct or independent minimal samples.
	Sampling Sampling
}

// DefaultConfig returns the default estimator configuration.
func DefaultConfig() Config {
	return Config{
		Confidence:        DefaultConfidence,
		DistanceThreshold: DefaultDistanceThreshold,
		MaxIterations:     DefaultMaxIterations,
		Sampling:          SamplingDistinct,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if !(c.Confidence > 0 && c.Confidence < 1) {
		return fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidConfig, c.Confidence)
	}
	if !(c.DistanceThreshold > 0) {
		return fmt.Errorf("%w: distance threshold must be positive, got %v", ErrInvalidConfig, c.DistanceThreshold)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if _, err := ParseSampling(string(c.Sampling)); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of one estimation.
type Result struct {
	// Homography maps points of the first set onto the second. The zero
	// matrix means no reliable homography was found.
	Homography geometry.Homography
	NumInliers int
	Inliers    PointSelection
	// Iterations is the number of RANSAC iterations that ran.
	Iterations int
}

// Found reports whether the result carries a homography.
func (r Result) Found() bool {
	return r.NumInliers >= MinimalSampleSize && !r.Homography.IsZero()
}

// InlierRatio is the fraction of the n input correspondences that are inliers.
func (r Result) InlierRatio(n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(r.NumInliers) / float64(n)
}

// Estimator is a robust homography estimator. Each instance owns its random
// generator, so an instance must not be used from several goroutines at once.
type Estimator struct {
	cfg     Config
	sampler *Sampler
	logger  *slog.Logger
}

// Option customizes an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEstimator validates cfg and returns an estimator.
func NewEstimator(cfg Config, opts ...Option) (*Estimator, error) {
	if cfg.Sampling == "" {
		cfg.Sampling = SamplingDistinct
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sampling, _ := ParseSampling(string(cfg.Sampling))
	cfg.Sampling = sampling

	e := &Estimator{
		cfg:     cfg,
		sampler: NewSampler(cfg.Seed),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate finds the homography mapping pts1 onto pts2. Mismatched lengths
// return ErrMismatchedPointSets. Too few inliers, or a degenerate inlier set,
// return a Result without a homography and a nil error.
func (e *Estimator) Estimate(pts1, pts2 []r2.Point) (Result, error) {
	if len(pts1) != len(pts2) {
		return Result{}, fmt.Errorf("%w: %d vs %d points", ErrMismatchedPointSets, len(pts1), len(pts2))
	}

	search := e.findInliers(pts1, pts2)
	defer mempool.PutInts(search.inliers)
	if len(search.inliers) < MinimalSampleSize {
		e.logger.Debug("Not enough inliers for a homography",
			"points", len(pts1), "inliers", len(search.inliers), "iterations", search.iterations)
		return Result{Iterations: search.iterations}, nil
	}

	h, err := NormalizedDLT(geometry.Select(pts1, search.inliers), geometry.Select(pts2, search.inliers))
	if err != nil {
		e.logger.Debug("Refit over inliers is degenerate", "inliers", len(search.inliers), "error", err)
		return Result{Iterations: search.iterations}, nil
	}

	e.logger.Debug("Homography estimated",
		"points", len(pts1),
		"inliers", len(search.inliers),
		"iterations", search.iterations,
		"hypotheses", search.hypotheses)

	return Result{
		Homography: h,
		NumInliers: len(search.inliers),
		Inliers:    search.inliers.Clone(),
		Iterations: search.iterations,
	}, nil
}
