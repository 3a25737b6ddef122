package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a homography has no usable inverse.
var ErrSingular = errors.New("singular homography")

// wEpsilon is the smallest homogeneous scale that still maps to a finite point.
const wEpsilon = 1e-12

// Homography is a 3x3 projective transform of the plane, defined up to scale.
// Indices are [row][column]. The zero value means "undefined".
type Homography [3][3]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// FromDense copies a 3x3 gonum matrix into a Homography.
func FromDense(m mat.Matrix) (Homography, error) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return Homography{}, fmt.Errorf("expected 3x3 matrix, got %dx%d", r, c)
	}
	var h Homography
	for i := range 3 {
		for j := range 3 {
			h[i][j] = m.At(i, j)
		}
	}
	return h, nil
}

// FromSlice builds a Homography from nine row-major values.
func FromSlice(v []float64) (Homography, error) {
	if len(v) != 9 {
		return Homography{}, fmt.Errorf("expected 9 values, got %d", len(v))
	}
	var h Homography
	for i := range 9 {
		h[i/3][i%3] = v[i]
	}
	return h, nil
}

// At returns the entry at row, col.
func (h Homography) At(row, col int) float64 {
	return h[row][col]
}

// IsZero reports whether h is the undefined zero matrix.
func (h Homography) IsZero() bool {
	return h == Homography{}
}

// IsFinite reports whether every entry is a finite number.
func (h Homography) IsFinite() bool {
	for i := range 3 {
		for j := range 3 {
			if math.IsNaN(h[i][j]) || math.IsInf(h[i][j], 0) {
				return false
			}
		}
	}
	return true
}

// Dense returns h as a gonum matrix.
func (h Homography) Dense() *mat.Dense {
	return mat.NewDense(3, 3, h.Slice())
}

// Slice returns the entries in row-major order.
func (h Homography) Slice() []float64 {
	out := make([]float64, 0, 9)
	for i := range 3 {
		out = append(out, h[i][0], h[i][1], h[i][2])
	}
	return out
}

// Rows returns the matrix as nested slices, which is how it is serialized.
func (h Homography) Rows() [][]float64 {
	out := make([][]float64, 3)
	for i := range 3 {
		out[i] = []float64{h[i][0], h[i][1], h[i][2]}
	}
	return out
}

// Mul returns the product h·o.
func (h Homography) Mul(o Homography) Homography {
	var out Homography
	for i := range 3 {
		for j := range 3 {
			for k := range 3 {
				out[i][j] += h[i][k] * o[k][j]
			}
		}
	}
	return out
}

// Scale multiplies every entry by s.
func (h Homography) Scale(s float64) Homography {
	for i := range 3 {
		for j := range 3 {
			h[i][j] *= s
		}
	}
	return h
}

// Normalized divides h by its bottom-right entry. A zero bottom-right entry
// leaves h unchanged.
func (h Homography) Normalized() Homography {
	if h[2][2] == 0 {
		return h
	}
	return h.Scale(1 / h[2][2])
}

// Inverse inverts h using gonum. Singular or non-finite inverses return ErrSingular.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, fmt.Errorf("%w: %w", ErrSingular, err)
	}
	out, err := FromDense(&inv)
	if err != nil {
		return Homography{}, err
	}
	if !out.IsFinite() {
		return Homography{}, ErrSingular
	}
	return out, nil
}

// Project maps pt through h and returns the homogeneous result.
func (h Homography) Project(pt r2.Point) (x, y, w float64) {
	x = h[0][0]*pt.X + h[0][1]*pt.Y + h[0][2]
	y = h[1][0]*pt.X + h[1][1]*pt.Y + h[1][2]
	w = h[2][0]*pt.X + h[2][1]*pt.Y + h[2][2]
	return x, y, w
}

// Apply maps pt through h. ok is false when the point lands at infinity.
func (h Homography) Apply(pt r2.Point) (r2.Point, bool) {
	x, y, w := h.Project(pt)
	if math.Abs(w) < wEpsilon || math.IsNaN(w) {
		return r2.Point{}, false
	}
	out := r2.Point{X: x / w, Y: y / w}
	if math.IsNaN(out.X) || math.IsNaN(out.Y) || math.IsInf(out.X, 0) || math.IsInf(out.Y, 0) {
		return r2.Point{}, false
	}
	return out, true
}

// ApplyAll maps every point through h. Points at infinity are reported by index.
func (h Homography) ApplyAll(pts []r2.Point) ([]r2.Point, []int) {
	out := make([]r2.Point, len(pts))
	var bad []int
	for i, pt := range pts {
		p, ok := h.Apply(pt)
		if !ok {
			bad = append(bad, i)
			continue
		}
		out[i] = p
	}
	return out, bad
}

// EqualUpToScale reports whether h and o describe the same transform within tol,
// after both are scaled to unit Frobenius norm with a common sign.
func (h Homography) EqualUpToScale(o Homography, tol float64) bool {
	a := unitFrobenius(h)
	b := unitFrobenius(o)
	same, flipped := 0.0, 0.0
	for i := range 3 {
		for j := range 3 {
			same = math.Max(same, math.Abs(a[i][j]-b[i][j]))
			flipped = math.Max(flipped, math.Abs(a[i][j]+b[i][j]))
		}
	}
	return math.Min(same, flipped) <= tol
}

func unitFrobenius(h Homography) Homography {
	n := mat.Norm(h.Dense(), 2)
	if n == 0 {
		return h
	}
	return h.Scale(1 / n)
}

// String formats the matrix on one line.
func (h Homography) String() string {
	return fmt.Sprintf("[[%g %g %g] [%g %g %g] [%g %g %g]]",
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2])
}
