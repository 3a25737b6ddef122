package homography

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/MeKo-Tech/homest/internal/geometry"
	"github.com/MeKo-Tech/homest/internal/mempool"
)

// MinimalSampleSize is the number of correspondences that fix a homography.
const MinimalSampleSize = 4

// rankTolerance bounds the ratio between the eighth and the largest singular
// value of the column-equilibrated DLT system. Below it the null space is more
// than one-dimensional.
const rankTolerance = 1e-12

// DLT fits a homography mapping pts1 onto pts2 with the direct linear transform.
// It needs at least four correspondences and works on the raw coordinates.
// Columns of the system are scaled to unit maximum before the SVD, so the rank
// test does not depend on where the points sit in the plane.
func DLT(pts1, pts2 []r2.Point) (geometry.Homography, error) {
	if len(pts1) != len(pts2) {
		return geometry.Homography{}, ErrMismatchedPointSets
	}
	if len(pts1) < MinimalSampleSize {
		return geometry.Homography{}, fmt.Errorf("%w: DLT needs at least %d correspondences, got %d",
			ErrInvalidArgument, MinimalSampleSize, len(pts1))
	}

	buf := mempool.GetFloat64(2 * len(pts1) * 9)
	a := buildDLTSystem(buf, pts1, pts2)
	colScale := equilibrateColumns(buf[:2*len(pts1)*9])

	var svd mat.SVD
	ok := svd.Factorize(a, mat.SVDFull)
	mempool.PutFloat64(buf)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("%w: SVD factorization failed", ErrDegenerate)
	}

	values := svd.Values(nil)
	if values[0] == 0 || values[7]/values[0] < rankTolerance {
		return geometry.Homography{}, fmt.Errorf("%w: DLT system is rank deficient", ErrDegenerate)
	}

	var v mat.Dense
	svd.VTo(&v)
	null := mat.Col(nil, 8, &v)
	for i := range null {
		null[i] *= colScale[i]
	}
	h, err := geometry.FromSlice(null)
	if err != nil {
		return geometry.Homography{}, err
	}
	if !h.IsFinite() {
		return geometry.Homography{}, fmt.Errorf("%w: non-finite solution", ErrDegenerate)
	}
	return h, nil
}

// buildDLTSystem stacks two rows per correspondence into a 2k x 9 matrix whose
// null vector is the row-major homography. The matrix is backed by buf, which
// must hold 18k values.
func buildDLTSystem(buf []float64, pts1, pts2 []r2.Point) *mat.Dense {
	k := len(pts1)
	data := buf[:0]
	for i := range k {
		x, y := pts1[i].X, pts1[i].Y
		u, v := pts2[i].X, pts2[i].Y
		data = append(data,
			0, 0, 0, -x, -y, -1, v*x, v*y, v,
			x, y, 1, 0, 0, 0, -u*x, -u*y, -u,
		)
	}
	return mat.NewDense(2*k, 9, data)
}

// equilibrateColumns divides each column of the row-major 9-column system in
// data by its largest magnitude and returns the factors applied. A null vector
// v of the scaled system gives the null vector colScale*v of the original.
func equilibrateColumns(data []float64) [9]float64 {
	var colScale [9]float64
	for j := range 9 {
		m := 0.0
		for i := j; i < len(data); i += 9 {
			m = math.Max(m, math.Abs(data[i]))
		}
		colScale[j] = 1
		if m > 0 && !math.IsInf(m, 0) {
			colScale[j] = 1 / m
		}
		for i := j; i < len(data); i += 9 {
			data[i] *= colScale[j]
		}
	}
	return colScale
}

// NormalizedDLT runs DLT on Hartley-normalized coordinates and maps the result
// back, scaled so that H[2][2] is 1 unless it is exactly zero.
func NormalizedDLT(pts1, pts2 []r2.Point) (geometry.Homography, error) {
	if len(pts1) != len(pts2) {
		return geometry.Homography{}, ErrMismatchedPointSets
	}
	n1, s1, err := normalizePoints(pts1)
	if err != nil {
		return geometry.Homography{}, fmt.Errorf("normalizing first point set: %w", err)
	}
	n2, s2, err := normalizePoints(pts2)
	if err != nil {
		return geometry.Homography{}, fmt.Errorf("normalizing second point set: %w", err)
	}

	hn, err := DLT(n1, n2)
	if err != nil {
		return geometry.Homography{}, err
	}

	s2inv, err := s2.Inverse()
	if err != nil {
		return geometry.Homography{}, fmt.Errorf("%w: %w", ErrDegenerate, err)
	}
	h := s2inv.Mul(hn).Mul(s1).Normalized()
	if !h.IsFinite() || h.IsZero() {
		return geometry.Homography{}, fmt.Errorf("%w: non-finite homography", ErrDegenerate)
	}
	return h, nil
}
