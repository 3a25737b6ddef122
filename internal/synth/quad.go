package synth

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
)

// ErrDegenerateQuad is returned when a quad-to-quad system has no unique solution.
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// QuadToQuad returns the homography mapping src[i] onto dst[i] exactly, with
// H[2][2] fixed to 1. It solves the 8x8 linear system directly, independent
// of the SVD path used by the estimator.
func QuadToQuad(src, dst [4]r2.Point) (geometry.Homography, error) {
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		// x = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x
		// y = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return geometry.Homography{}, ErrDegenerateQuad
	}
	return geometry.Homography{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], 1},
	}, nil
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for col := range 8 {
		pivot := findPivotRow(&a, col)
		if pivot < 0 {
			return [8]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := range 8 {
			f := a[r][col]
			if r == col || f == 0 {
				continue
			}
			for c := col; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// pivotEpsilon treats smaller pivots as zero.
const pivotEpsilon = 1e-12

func findPivotRow(a *[8][8]float64, col int) int {
	best, row := math.Abs(a[col][col]), col
	for r := col + 1; r < 8; r++ {
		if v := math.Abs(a[r][col]); v > best {
			best, row = v, r
		}
	}
	if best < pivotEpsilon {
		return -1
	}
	return row
}
