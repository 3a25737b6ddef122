// Package batch estimates homographies for many correspondence files in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoFiles is returned when discovery finds nothing to process.
var ErrNoFiles = errors.New("no correspondence files found")

// ProcessBatch discovers correspondence files under paths and estimates a
// homography for each.
func ProcessBatch(ctx context.Context, paths []string, cfg *Config) (*Result, error) {
	files, err := discoverFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	slog.Debug("Starting batch estimation", "files", len(files), "workers", cfg.Workers)

	start := time.Now()
	reports, err := processFilesParallel(ctx, files, cfg)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("batch estimation failed: %w", err)
	}

	return &Result{
		Reports:     reports,
		Files:       files,
		Duration:    duration,
		WorkerCount: max(min(cfg.Workers, len(files)), 1),
		Summary:     Summarize(reports),
	}, nil
}
