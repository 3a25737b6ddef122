package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/synth"
)

const infoLevel = "info"

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	est := homography.DefaultConfig()
	return Config{
		LogLevel: infoLevel,
		Verbose:  false,
		Estimator: EstimatorConfig{
			Confidence:        est.Confidence,
			DistanceThreshold: est.DistanceThreshold,
			MaxIterations:     est.MaxIterations,
			Seed:              0,
			Sampling:          string(est.Sampling),
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxBodyMB:       10,
			MaxPoints:       100000,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				RequestsPerHour:   2000,
				MaxRequestsPerDay: 20000,
				MaxPointsPerDay:   50_000_000,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			Include:         []string{"*.json", "*.yaml", "*.yml", "*.csv"},
			ContinueOnError: true,
		},
		Generate: synth.DefaultConfig(),
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if _, err := c.ToEstimatorConfig(); err != nil {
		return err
	}
	if err := c.Generate.Validate(); err != nil {
		return fmt.Errorf("invalid generate settings: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxBodyMB <= 0 {
		return fmt.Errorf("invalid max body size: %d (must be positive)", c.Server.MaxBodyMB)
	}
	if c.Server.MaxPoints <= 0 {
		return fmt.Errorf("invalid max points: %d (must be positive)", c.Server.MaxPoints)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToEstimatorConfig converts the estimator section to a homography.Config
// and validates it.
func (c *Config) ToEstimatorConfig() (homography.Config, error) {
	sampling, err := homography.ParseSampling(c.Estimator.Sampling)
	if err != nil {
		return homography.Config{}, err
	}
	cfg := homography.Config{
		Confidence:        c.Estimator.Confidence,
		DistanceThreshold: c.Estimator.DistanceThreshold,
		MaxIterations:     c.Estimator.MaxIterations,
		Seed:              c.Estimator.Seed,
		Sampling:          sampling,
	}
	if err := cfg.Validate(); err != nil {
		return homography.Config{}, err
	}
	return cfg, nil
}

func contains(list []string, v string) bool {
	return slices.Contains(list, v)
}
