package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/results"
)

// Config holds all configuration for batch estimation.
type Config struct {
	Estimator homography.Config

	// Parallel processing settings
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Error handling
	ContinueOnError bool

	// Output settings
	Format     string
	OutputFile string

	// Progress settings
	Progress         ProgressCallback
	ProgressInterval time.Duration
	Quiet            bool
}

// Result holds the result of a batch run.
type Result struct {
	Reports     []results.Report
	Files       []string
	Duration    time.Duration
	WorkerCount int
	Summary     Summary
}

// FormatResults formats the reports in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return results.Format(r.Reports, format)
}

// SaveResults writes the formatted reports to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	_, err = io.WriteString(w, output)
	return err
}

// PrintStats writes the batch summary to w.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Summary
	_, _ = fmt.Fprintf(w, "Files: %d (found %d, not found %d, failed %d)\n", s.Files, s.Found, s.NotFound, s.Failed)
	_, _ = fmt.Fprintf(w, "Workers: %d, total time: %v\n", r.WorkerCount, r.Duration.Round(time.Millisecond))
	if s.Found == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Inlier ratio: mean %.3f, median %.3f, min %.3f\n",
		s.InlierRatio.Mean, s.InlierRatio.Median, s.InlierRatio.Min)
	_, _ = fmt.Fprintf(w, "Iterations: mean %.1f, median %.1f, p95 %.1f, max %.0f\n",
		s.Iterations.Mean, s.Iterations.Median, s.Iterations.P95, s.Iterations.Max)
	_, _ = fmt.Fprintf(w, "Mean error: mean %.4f, p95 %.4f\n", s.MeanError.Mean, s.MeanError.P95)
	_, _ = fmt.Fprintf(w, "Time per file (ms): mean %.3f, p95 %.3f\n", s.DurationMs.Mean, s.DurationMs.P95)
}
