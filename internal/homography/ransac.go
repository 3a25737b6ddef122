package homography

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
	"github.com/MeKo-Tech/homest/internal/mempool"
)

// inlierSearch is the outcome of one RANSAC run.
type inlierSearch struct {
	inliers    PointSelection
	iterations int
	hypotheses int // non-degenerate hypotheses evaluated
}

// findInliers runs RANSAC over the correspondences and returns the largest
// consensus set found. The set stays empty unless some hypothesis gathers more
// than MinimalSampleSize inliers.
func (e *Estimator) findInliers(pts1, pts2 []r2.Point) inlierSearch {
	var out inlierSearch
	n := len(pts1)
	if n < MinimalSampleSize {
		return out
	}

	budget := e.cfg.MaxIterations
	sample1 := make([]r2.Point, MinimalSampleSize)
	sample2 := make([]r2.Point, MinimalSampleSize)

	// scratch holds the current hypothesis' inliers; the best set swaps with
	// it on improvement and is handed to the caller.
	scratch := PointSelection(mempool.GetInts(n))
	defer func() { mempool.PutInts(scratch) }()

	for out.iterations < budget {
		out.iterations++

		sel := e.sampler.Draw(e.cfg.Sampling, n, MinimalSampleSize)
		for i, j := range sel {
			sample1[i] = pts1[j]
			sample2[i] = pts2[j]
		}

		h, hinv, ok := hypothesis(sample1, sample2)
		if !ok {
			continue
		}
		out.hypotheses++

		inliers := countInliers(scratch, pts1, pts2, h, hinv, e.cfg.DistanceThreshold)
		if len(inliers) <= MinimalSampleSize || len(inliers) <= len(out.inliers) {
			continue
		}

		if out.inliers != nil {
			scratch = out.inliers
		} else {
			scratch = PointSelection(mempool.GetInts(n))
		}
		out.inliers = inliers
		ratio := float64(len(inliers)) / float64(n)
		budget = iterationBudget(budget, e.cfg.MaxIterations, e.cfg.Confidence, ratio)
		e.logger.Debug("RANSAC hypothesis improved",
			"iteration", out.iterations,
			"inliers", len(inliers),
			"inlier_ratio", ratio,
			"budget", budget)
	}
	return out
}

// collinearTolerance is the relative triangle area below which three sample
// points count as collinear.
const collinearTolerance = 1e-9

// hypothesis fits a homography to a minimal sample and inverts it once for
// the whole inlier count. ok is false for degenerate samples: repeated or
// collinear points are rejected before the fit.
func hypothesis(sample1, sample2 []r2.Point) (h, hinv geometry.Homography, ok bool) {
	if !geometry.InGeneralPosition(sample1, collinearTolerance) ||
		!geometry.InGeneralPosition(sample2, collinearTolerance) {
		return h, hinv, false
	}
	h, err := DLT(sample1, sample2)
	if err != nil {
		return h, hinv, false
	}
	hinv, err = h.Inverse()
	if err != nil {
		return h, hinv, false
	}
	return h, hinv, true
}

// iterationBudget returns the number of iterations needed to draw at least one
// all-inlier minimal sample with the given confidence, assuming inlierRatio.
// The result never exceeds current or maxIterations and is at least 1.
func iterationBudget(current, maxIterations int, confidence, inlierRatio float64) int {
	if current > maxIterations {
		current = maxIterations
	}
	pAll := math.Pow(inlierRatio, MinimalSampleSize)

	var needed int
	switch {
	case pAll >= 1:
		needed = 1
	case pAll <= 0 || math.IsNaN(pAll):
		needed = maxIterations
	default:
		est := math.Log(1-confidence) / math.Log(1-pAll)
		if math.IsNaN(est) || math.IsInf(est, 0) || est >= float64(maxIterations) {
			needed = maxIterations
		} else {
			needed = int(math.Floor(est))
		}
	}

	needed = max(needed, 1)
	return max(min(current, needed), 1)
}
