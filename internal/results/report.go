// Package results turns estimation results into reports and formats them as
// text, JSON or CSV.
package results

import (
	"time"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
	"github.com/MeKo-Tech/homest/internal/homography"
)

// Report is the serializable summary of one estimation.
type Report struct {
	Source      string      `json:"source,omitempty"`
	Found       bool        `json:"found"`
	Homography  [][]float64 `json:"homography,omitempty"`
	NumPoints   int         `json:"num_points"`
	NumInliers  int         `json:"num_inliers"`
	InlierRatio float64     `json:"inlier_ratio"`
	Inliers     []int       `json:"inliers"`
	Iterations  int         `json:"iterations"`
	MeanError   float64     `json:"mean_error"`
	// TruthError is the mean distance between points mapped by the estimate
	// and by the known homography, when one is available.
	TruthError *float64 `json:"truth_error,omitempty"`
	DurationMs float64  `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// NewReport summarizes res for the given correspondences.
func NewReport(source string, pts1, pts2 []r2.Point, res homography.Result, duration time.Duration) Report {
	r := Report{
		Source:      source,
		Found:       res.Found(),
		NumPoints:   len(pts1),
		NumInliers:  res.NumInliers,
		InlierRatio: res.InlierRatio(len(pts1)),
		Inliers:     []int(res.Inliers),
		Iterations:  res.Iterations,
		DurationMs:  float64(duration.Microseconds()) / 1000,
	}
	if r.Inliers == nil {
		r.Inliers = []int{}
	}
	if r.Found {
		r.Homography = res.Homography.Rows()
		r.MeanError = meanInlierError(pts1, pts2, res)
	}
	return r
}

// ErrorReport records a failed estimation.
func ErrorReport(source string, err error) Report {
	return Report{Source: source, Inliers: []int{}, Error: err.Error()}
}

// WithTruth sets TruthError by comparing the estimate against truth on pts.
func (r Report) WithTruth(truth geometry.Homography, pts []r2.Point) Report {
	if !r.Found || len(pts) == 0 {
		return r
	}
	est, err := homographyFromRows(r.Homography)
	if err != nil {
		return r
	}
	sum, n := 0.0, 0
	for _, pt := range pts {
		a, okA := est.Apply(pt)
		b, okB := truth.Apply(pt)
		if !okA || !okB {
			continue
		}
		sum += geometry.Distance(a, b)
		n++
	}
	if n > 0 {
		v := sum / float64(n)
		r.TruthError = &v
	}
	return r
}

func meanInlierError(pts1, pts2 []r2.Point, res homography.Result) float64 {
	hinv, err := res.Homography.Inverse()
	if err != nil || len(res.Inliers) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range res.Inliers {
		sum += homography.ReprojectionError(pts1[i], pts2[i], res.Homography, hinv)
	}
	return sum / float64(len(res.Inliers))
}

func homographyFromRows(rows [][]float64) (geometry.Homography, error) {
	flat := make([]float64, 0, 9)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return geometry.FromSlice(flat)
}
