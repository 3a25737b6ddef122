//nolint:lll
package config

import "github.com/MeKo-Tech/homest/internal/synth"

// Config represents the complete configuration for homest.
// It covers every command (estimate, batch, generate, serve) and is loaded
// from configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Robust estimator parameters
	Estimator EstimatorConfig `mapstructure:"estimator" yaml:"estimator" json:"estimator"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Synthetic data (for generate command)
	Generate synth.Config `mapstructure:"generate" yaml:"generate" json:"generate"`
}

// EstimatorConfig contains RANSAC and refit settings.
type EstimatorConfig struct {
	Confidence        float64 `mapstructure:"confidence" yaml:"confidence" json:"confidence"`
	DistanceThreshold float64 `mapstructure:"distance_threshold" yaml:"distance_threshold" json:"distance_threshold"`
	MaxIterations     int     `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	Seed              uint64  `mapstructure:"seed" yaml:"seed" json:"seed"`
	Sampling          string  `mapstructure:"sampling" yaml:"sampling" json:"sampling"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxBodyMB       int             `mapstructure:"max_body_mb" yaml:"max_body_mb" json:"max_body_mb"`
	MaxPoints       int             `mapstructure:"max_points" yaml:"max_points" json:"max_points"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits and daily quotas.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxPointsPerDay   int64 `mapstructure:"max_points_per_day" yaml:"max_points_per_day" json:"max_points_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
