package homography

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
)

// ReprojectionError is the symmetric transfer error of a correspondence:
// the distance from pt2 to H·pt1 plus the distance from pt1 to Hinv·pt2.
// Both terms are plain Euclidean distances, so the value is in input units.
// A point mapped to infinity yields +Inf.
func ReprojectionError(pt1, pt2 r2.Point, h, hinv geometry.Homography) float64 {
	fwd, ok := h.Apply(pt1)
	if !ok {
		return math.Inf(1)
	}
	back, ok := hinv.Apply(pt2)
	if !ok {
		return math.Inf(1)
	}
	e := geometry.Distance(pt2, fwd) + geometry.Distance(pt1, back)
	if math.IsNaN(e) {
		return math.Inf(1)
	}
	return e
}

// countInliers appends to dst[:0] the indices whose reprojection error is
// below threshold.
func countInliers(dst PointSelection, pts1, pts2 []r2.Point, h, hinv geometry.Homography, threshold float64) PointSelection {
	inliers := dst[:0]
	for i := range pts1 {
		if ReprojectionError(pts1[i], pts2[i], h, hinv) < threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}
