package homography

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
)

// NormalizingSimilarity returns the similarity that moves the centroid of pts
// to the origin and scales the mean distance from it to sqrt(2).
func NormalizingSimilarity(pts []r2.Point) (geometry.Homography, error) {
	if len(pts) == 0 {
		return geometry.Homography{}, ErrDegenerate
	}
	c := geometry.Centroid(pts)
	r := geometry.MeanDistance(pts, c)
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return geometry.Homography{}, ErrDegenerate
	}
	s := math.Sqrt2 / r
	return geometry.Homography{
		{s, 0, -s * c.X},
		{0, s, -s * c.Y},
		{0, 0, 1},
	}, nil
}

// normalizePoints applies the normalizing similarity of pts and returns both
// the transformed points and the transform.
func normalizePoints(pts []r2.Point) ([]r2.Point, geometry.Homography, error) {
	t, err := NormalizingSimilarity(pts)
	if err != nil {
		return nil, geometry.Homography{}, err
	}
	s := t[0][0]
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = r2.Point{X: s*pt.X + t[0][2], Y: s*pt.Y + t[1][2]}
	}
	return out, t, nil
}
