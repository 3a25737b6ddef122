package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Centroid returns the mean of pts. An empty set has a zero centroid.
func Centroid(pts []r2.Point) r2.Point {
	if len(pts) == 0 {
		return r2.Point{}
	}
	var c r2.Point
	for _, pt := range pts {
		c = c.Add(pt)
	}
	return c.Mul(1 / float64(len(pts)))
}

// MeanDistance returns the mean Euclidean distance of pts from c.
func MeanDistance(pts []r2.Point, c r2.Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(c).Norm()
	}
	return d / float64(len(pts))
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// Select returns the points at the given indices, in order.
func Select(pts []r2.Point, idx []int) []r2.Point {
	out := make([]r2.Point, len(idx))
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

// Collinear reports whether a, b and c lie on one line within tol, measured as
// twice the triangle area over the squared longest side. The measure does not
// change when the points are translated or scaled.
func Collinear(a, b, c r2.Point, tol float64) bool {
	area2 := math.Abs(b.Sub(a).Cross(c.Sub(a)))
	side := math.Max(b.Sub(a).Norm(), math.Max(c.Sub(a).Norm(), c.Sub(b).Norm()))
	if side == 0 {
		return true
	}
	return area2/(side*side) <= tol
}

// InGeneralPosition reports whether no three of pts are collinear.
func InGeneralPosition(pts []r2.Point, tol float64) bool {
	n := len(pts)
	for i := range n {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				if Collinear(pts[i], pts[j], pts[k], tol) {
					return false
				}
			}
		}
	}
	return true
}

// IsFinitePoint reports whether both coordinates are finite.
func IsFinitePoint(pt r2.Point) bool {
	return !math.IsNaN(pt.X) && !math.IsNaN(pt.Y) && !math.IsInf(pt.X, 0) && !math.IsInf(pt.Y, 0)
}
