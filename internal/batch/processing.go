package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/homest/internal/common"
	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/results"
)

// fileJob is one file queued for estimation.
type fileJob struct {
	index int
	path  string
}

// fileResult is the outcome of one fileJob.
type fileResult struct {
	index  int
	report results.Report
	err    error
}

// estimateFile loads one correspondence file and estimates its homography.
// Every file gets its own estimator, seeded from the configured seed and the
// file index, so results do not depend on which worker ran the job.
func estimateFile(path string, index int, cfg homography.Config) (results.Report, error) {
	set, err := correspondence.Load(path)
	if err != nil {
		return results.Report{}, err
	}

	if cfg.Seed != 0 {
		cfg.Seed += uint64(index) //nolint:gosec // index is non-negative
	}
	est, err := homography.NewEstimator(cfg)
	if err != nil {
		return results.Report{}, err
	}

	timer := common.NewNamedTimer(path)
	res, err := est.Estimate(set.Pts1, set.Pts2)
	timer.Stop()
	if err != nil {
		return results.Report{}, err
	}

	report := results.NewReport(path, set.Pts1, set.Pts2, res, timer.Duration())
	if set.Truth != nil {
		report = report.WithTruth(*set.Truth, set.Pts1)
	}
	return report, nil
}

// processFilesParallel runs estimateFile over files with a worker pool and
// returns reports in input order. Failed files become error reports when
// ContinueOnError is set; otherwise the first failure cancels the run.
func processFilesParallel(ctx context.Context, files []string, cfg *Config) ([]results.Report, error) {
	if len(files) == 0 {
		return nil, errors.New("no files provided")
	}

	workers := max(cfg.Workers, 1)
	workers = min(workers, len(files))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Progress != nil {
		cfg.Progress.OnStart(len(files))
		defer cfg.Progress.OnComplete()
	}

	jobs := make(chan fileJob, len(files))
	out := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go worker(ctx, jobs, out, &wg, cfg.Estimator)
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case jobs <- fileJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	reports := make([]results.Report, len(files))
	done := make([]bool, len(files))
	var firstErr error
	processed := 0

	for r := range out {
		processed++
		done[r.index] = true
		if r.err != nil {
			slog.Error("Estimation failed", "file", files[r.index], "error", r.err)
			if cfg.Progress != nil {
				cfg.Progress.OnError(r.index, r.err)
			}
			reports[r.index] = results.ErrorReport(files[r.index], r.err)
			if !cfg.ContinueOnError && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", files[r.index], r.err)
				cancel()
			}
		} else {
			reports[r.index] = r.report
		}
		if cfg.Progress != nil {
			cfg.Progress.OnProgress(processed, len(files))
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, ok := range done {
		if !ok {
			return nil, fmt.Errorf("%s: not processed", files[i])
		}
	}
	return reports, nil
}

// worker estimates files from jobs until the channel closes or ctx ends.
func worker(ctx context.Context, jobs <-chan fileJob, out chan<- fileResult, wg *sync.WaitGroup, cfg homography.Config) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			report, err := estimateFile(job.path, job.index, cfg)
			select {
			case out <- fileResult{index: job.index, report: report, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
