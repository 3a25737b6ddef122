package batch

import (
	"github.com/montanaflynn/stats"

	"github.com/MeKo-Tech/homest/internal/results"
)

// Distribution summarizes one metric over the files with a homography.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P95    float64 `json:"p95"`
}

// Summary aggregates a batch run.
type Summary struct {
	Files       int          `json:"files"`
	Found       int          `json:"found"`
	NotFound    int          `json:"not_found"`
	Failed      int          `json:"failed"`
	InlierRatio Distribution `json:"inlier_ratio"`
	Iterations  Distribution `json:"iterations"`
	MeanError   Distribution `json:"mean_error"`
	DurationMs  Distribution `json:"duration_ms"`
}

// Summarize computes counts and metric distributions over reports.
func Summarize(reports []results.Report) Summary {
	s := Summary{Files: len(reports)}
	var ratios, iterations, errs, durations stats.Float64Data

	for _, r := range reports {
		switch {
		case r.Error != "":
			s.Failed++
			continue
		case !r.Found:
			s.NotFound++
		default:
			s.Found++
			ratios = append(ratios, r.InlierRatio)
			errs = append(errs, r.MeanError)
		}
		iterations = append(iterations, float64(r.Iterations))
		durations = append(durations, r.DurationMs)
	}

	s.InlierRatio = describe(ratios)
	s.Iterations = describe(iterations)
	s.MeanError = describe(errs)
	s.DurationMs = describe(durations)
	return s
}

// describe ignores the errors stats returns for empty input; an empty sample
// yields a zero Distribution.
func describe(data stats.Float64Data) Distribution {
	if data.Len() == 0 {
		return Distribution{}
	}
	var d Distribution
	d.Mean, _ = stats.Mean(data)
	d.Median, _ = stats.Median(data)
	d.StdDev, _ = stats.StandardDeviation(data)
	d.Min, _ = stats.Min(data)
	d.Max, _ = stats.Max(data)
	d.P95, _ = stats.Percentile(data, 95)
	return d
}
