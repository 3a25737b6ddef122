package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/homest/internal/batch"
)

func (a *app) newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch PATH...",
		Short: "Estimate homographies for many correspondence files in parallel",
		Long: `Estimate a homography for every correspondence file found under the given
files and directories, using a pool of parallel workers.

Results are reported in input order. With a fixed --seed every file gets its own
seed derived from its position, so output does not depend on the worker count.

Examples:
  homest batch scenes/*.json
  homest batch data/ --recursive --workers 8
  homest batch data/ --format csv --output results.csv --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runBatch,
	}

	addEstimatorFlags(cmd)
	addOutputFlags(cmd)

	cmd.Flags().IntP("workers", "w", 0, "number of parallel workers (default from config)")
	cmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	cmd.Flags().StringSlice("include", nil, "file patterns to include (default from config)")
	cmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	cmd.Flags().Bool("continue-on-error", true, "report failed files instead of stopping the run")
	cmd.Flags().Bool("progress", false, "show progress on stderr")
	cmd.Flags().Bool("stats", false, "print summary statistics after the results")
	cmd.Flags().Bool("quiet", false, "suppress progress and statistics output")

	return cmd
}

// toBatchConfig maps the loaded configuration to batch.Config.
// Flags override config values only when explicitly set.
func (a *app) toBatchConfig(cmd *cobra.Command) (*batch.Config, error) {
	est, err := a.estimatorConfig(cmd)
	if err != nil {
		return nil, err
	}
	format, outputFile, err := a.outputSettings(cmd)
	if err != nil {
		return nil, err
	}

	cfg := a.cfg.Batch
	batchConfig := &batch.Config{
		Estimator:       est,
		Workers:         cfg.Workers,
		Recursive:       cfg.Recursive,
		IncludePatterns: cfg.Include,
		ExcludePatterns: cfg.Exclude,
		ContinueOnError: cfg.ContinueOnError,
		Format:          format,
		OutputFile:      outputFile,
	}

	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("include") {
		batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}
	if cmd.Flags().Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	if batchConfig.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", batchConfig.Workers)
	}

	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	if progress, _ := cmd.Flags().GetBool("progress"); progress && !batchConfig.Quiet {
		batchConfig.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Estimating")
	} else {
		batchConfig.Progress = batch.NewLogProgressCallback(slog.Default(), 10)
	}

	return batchConfig, nil
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	config, err := a.toBatchConfig(cmd)
	if err != nil {
		return err
	}

	result, err := batch.ProcessBatch(cmd.Context(), args, config)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), config.Format, config.OutputFile); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats && !config.Quiet {
		result.PrintStats(cmd.OutOrStdout())
	}
	return nil
}
