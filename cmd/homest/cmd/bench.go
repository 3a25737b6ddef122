package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/homest/internal/benchmark"
	"github.com/MeKo-Tech/homest/internal/common"
	"github.com/MeKo-Tech/homest/internal/homography"
)

func (a *app) newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure estimator speed and accuracy on synthetic data",
		Long: `Run the estimator on generated correspondence sets across several outlier
fractions and both sampling policies, and report success rate, iteration
counts, run time and distance from the true homography per case.

Examples:
  homest bench
  homest bench --trials 50 --outliers 0.2,0.5 --sampling-modes distinct
  homest bench --noise 0.5 --format json --output bench.json`,
		Args: cobra.NoArgs,
		RunE: a.runBench,
	}

	d := benchmark.DefaultSweepConfig()
	addEstimatorFlags(cmd)
	cmd.Flags().Int("points", d.Points, "correspondences per generated set")
	cmd.Flags().Int("trials", d.Trials, "generated sets per case")
	cmd.Flags().Uint64("data-seed", d.Seed, "seed of the first generated set")
	cmd.Flags().Float64("tolerance", d.Tolerance, "largest mean distance from the true homography counted as success")
	cmd.Flags().Float64Slice("outliers", []float64{0.1, 0.3, 0.5, 0.7}, "outlier fractions to sweep")
	cmd.Flags().Float64("noise", 0, "standard deviation of Gaussian noise added to inliers")
	cmd.Flags().StringSlice("sampling-modes", []string{string(homography.SamplingDistinct), string(homography.SamplingIndependent)},
		"sampling policies to sweep")
	cmd.Flags().StringP("format", "f", "table", "output format: table or json")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	return cmd
}

// sweepConfig builds the sweep from flags and the estimator configuration.
func (a *app) sweepConfig(cmd *cobra.Command) (benchmark.SweepConfig, error) {
	cfg := benchmark.DefaultSweepConfig()

	est, err := a.estimatorConfig(cmd)
	if err != nil {
		return cfg, err
	}
	cfg.Estimator = est

	cfg.Points, _ = cmd.Flags().GetInt("points")
	cfg.Trials, _ = cmd.Flags().GetInt("trials")
	cfg.Seed, _ = cmd.Flags().GetUint64("data-seed")
	cfg.Tolerance, _ = cmd.Flags().GetFloat64("tolerance")

	fractions, _ := cmd.Flags().GetFloat64Slice("outliers")
	noise, _ := cmd.Flags().GetFloat64("noise")
	modes, _ := cmd.Flags().GetStringSlice("sampling-modes")

	cfg.Cases = nil
	for _, f := range fractions {
		for _, m := range modes {
			s, err := homography.ParseSampling(m)
			if err != nil {
				return cfg, err
			}
			cfg.Cases = append(cfg.Cases, benchmark.Case{OutlierFraction: f, Noise: noise, Sampling: s})
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid benchmark settings: %w", err)
	}
	return cfg, nil
}

func (a *app) runBench(cmd *cobra.Command, _ []string) error {
	cfg, err := a.sweepConfig(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported output format: %s", format)
	}
	outputFile, _ := cmd.Flags().GetString("output")

	slog.Info("Starting benchmark",
		"cases", len(cfg.Cases),
		"trials", cfg.Trials,
		"points", cfg.Points)

	timer := common.NewNamedTimer("benchmark")
	res, err := benchmark.RunSweep(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}
	timer.Stop()

	var buf bytes.Buffer
	switch format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	default:
		if err := benchmark.WriteTable(&buf, res); err != nil {
			return err
		}
	}

	slog.Info("Benchmark completed", "duration", timer.Duration().String())
	return writeOutput(cmd.OutOrStdout(), buf.String(), outputFile)
}
