package correspondence

import (
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
)

// Match is one correspondence in the flat representation.
type Match struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// Document is the JSON and YAML shape of a correspondence set. Either the
// paired lists or the flat matches may be used, not both.
type Document struct {
	Pts1    [][2]float64 `json:"pts1,omitempty" yaml:"pts1,omitempty"`
	Pts2    [][2]float64 `json:"pts2,omitempty" yaml:"pts2,omitempty"`
	Matches []Match      `json:"matches,omitempty" yaml:"matches,omitempty"`
	Truth   [][]float64  `json:"truth,omitempty" yaml:"truth,omitempty"`
}

// ToSet converts the document to a Set.
func (d *Document) ToSet() (*Set, error) {
	if len(d.Matches) > 0 && (len(d.Pts1) > 0 || len(d.Pts2) > 0) {
		return nil, fmt.Errorf("document has both matches and point lists")
	}

	s := &Set{}
	if len(d.Matches) > 0 {
		s.Pts1 = make([]r2.Point, len(d.Matches))
		s.Pts2 = make([]r2.Point, len(d.Matches))
		for i, m := range d.Matches {
			s.Pts1[i] = r2.Point{X: m.X1, Y: m.Y1}
			s.Pts2[i] = r2.Point{X: m.X2, Y: m.Y2}
		}
	} else {
		s.Pts1 = toPoints(d.Pts1)
		s.Pts2 = toPoints(d.Pts2)
	}

	if len(d.Truth) > 0 {
		h, err := homographyFromRows(d.Truth)
		if err != nil {
			return nil, fmt.Errorf("invalid truth: %w", err)
		}
		s.Truth = &h
	}
	return s, nil
}

// NewDocument converts a Set to the paired-list document shape.
func NewDocument(s *Set) *Document {
	d := &Document{
		Pts1: fromPoints(s.Pts1),
		Pts2: fromPoints(s.Pts2),
	}
	if s.Truth != nil {
		d.Truth = s.Truth.Rows()
	}
	return d
}

func toPoints(in [][2]float64) []r2.Point {
	out := make([]r2.Point, len(in))
	for i, p := range in {
		out[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return out
}

func fromPoints(in []r2.Point) [][2]float64 {
	out := make([][2]float64, len(in))
	for i, p := range in {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

func homographyFromRows(rows [][]float64) (geometry.Homography, error) {
	if len(rows) != 3 {
		return geometry.Homography{}, fmt.Errorf("expected 3 rows, got %d", len(rows))
	}
	flat := make([]float64, 0, 9)
	for i, r := range rows {
		if len(r) != 3 {
			return geometry.Homography{}, fmt.Errorf("row %d has %d values, expected 3", i, len(r))
		}
		flat = append(flat, r...)
	}
	return geometry.FromSlice(flat)
}
