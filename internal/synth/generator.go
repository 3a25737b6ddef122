// Package synth generates synthetic point correspondences with a known
// homography, a controlled share of outliers and Gaussian noise.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
)

// Config controls synthetic data generation.
type Config struct {
	Count              int     `mapstructure:"count" yaml:"count" json:"count"`
	OutlierFraction    float64 `mapstructure:"outlier_fraction" yaml:"outlier_fraction" json:"outlier_fraction"`
	Noise              float64 `mapstructure:"noise" yaml:"noise" json:"noise"`
	Width              float64 `mapstructure:"width" yaml:"width" json:"width"`
	Height             float64 `mapstructure:"height" yaml:"height" json:"height"`
	Perspective        float64 `mapstructure:"perspective" yaml:"perspective" json:"perspective"`
	MinOutlierDistance float64 `mapstructure:"min_outlier_distance" yaml:"min_outlier_distance" json:"min_outlier_distance"`
	Seed               uint64  `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// DefaultConfig returns a 640x480 scene with 200 correspondences, 30% outliers
// and no noise.
func DefaultConfig() Config {
	return Config{
		Count:              200,
		OutlierFraction:    0.3,
		Noise:              0,
		Width:              640,
		Height:             480,
		Perspective:        0.15,
		MinOutlierDistance: 20,
	}
}

// Validate checks the generation parameters.
func (c Config) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("count must be non-negative, got %d", c.Count)
	}
	if c.OutlierFraction < 0 || c.OutlierFraction > 1 {
		return fmt.Errorf("outlier fraction must be in [0, 1], got %v", c.OutlierFraction)
	}
	if c.Noise < 0 {
		return fmt.Errorf("noise must be non-negative, got %v", c.Noise)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("scene size must be positive, got %vx%v", c.Width, c.Height)
	}
	if c.Perspective < 0 || c.Perspective >= 0.5 {
		return fmt.Errorf("perspective must be in [0, 0.5), got %v", c.Perspective)
	}
	if c.MinOutlierDistance < 0 {
		return fmt.Errorf("min outlier distance must be non-negative, got %v", c.MinOutlierDistance)
	}
	return nil
}

// Dataset is a generated correspondence set with its ground truth.
type Dataset struct {
	Pts1     []r2.Point
	Pts2     []r2.Point
	Truth    geometry.Homography
	Inliers  []int
	Outliers []int
}

// Generator produces datasets from its own random source.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator validates cfg and returns a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewPCG(seed, ^seed))}, nil
}

// Generate draws a fresh ground-truth homography and correspondences for it.
func (g *Generator) Generate() (*Dataset, error) {
	truth, err := g.RandomHomography()
	if err != nil {
		return nil, err
	}
	return g.GenerateFor(truth)
}

// GenerateFor draws correspondences for a given ground-truth homography.
func (g *Generator) GenerateFor(truth geometry.Homography) (*Dataset, error) {
	n := g.cfg.Count
	numOutliers := int(math.Round(g.cfg.OutlierFraction * float64(n)))
	outlier := make(map[int]bool, numOutliers)
	for _, i := range g.rng.Perm(n)[:numOutliers] {
		outlier[i] = true
	}

	ds := &Dataset{
		Pts1:  make([]r2.Point, n),
		Pts2:  make([]r2.Point, n),
		Truth: truth,
	}
	for i := range n {
		p1, p2, err := g.inlierPair(truth)
		if err != nil {
			return nil, err
		}
		ds.Pts1[i] = p1
		if outlier[i] {
			ds.Pts2[i] = g.outlierFor(p2)
			ds.Outliers = append(ds.Outliers, i)
		} else {
			ds.Pts2[i] = r2.Point{X: p2.X + g.noise(), Y: p2.Y + g.noise()}
			ds.Inliers = append(ds.Inliers, i)
		}
	}
	sort.Ints(ds.Outliers)
	return ds, nil
}

// RandomHomography moves each corner of the scene by up to Perspective times
// its size and returns the homography between the two quads.
func (g *Generator) RandomHomography() (geometry.Homography, error) {
	w, h := g.cfg.Width, g.cfg.Height
	src := [4]r2.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
	for range 10 {
		var dst [4]r2.Point
		for i, c := range src {
			dst[i] = r2.Point{
				X: c.X + g.uniform(-1, 1)*g.cfg.Perspective*w,
				Y: c.Y + g.uniform(-1, 1)*g.cfg.Perspective*h,
			}
		}
		truth, err := QuadToQuad(src, dst)
		if err != nil {
			continue
		}
		if _, err := truth.Inverse(); err != nil {
			continue
		}
		return truth, nil
	}
	return geometry.Homography{}, ErrDegenerateQuad
}

var errNoFinitePoint = errors.New("homography maps the scene to infinity")

func (g *Generator) inlierPair(truth geometry.Homography) (r2.Point, r2.Point, error) {
	for range 100 {
		p1 := r2.Point{X: g.uniform(0, g.cfg.Width), Y: g.uniform(0, g.cfg.Height)}
		if p2, ok := truth.Apply(p1); ok {
			return p1, p2, nil
		}
	}
	return r2.Point{}, r2.Point{}, errNoFinitePoint
}

// outlierFor returns a point at least MinOutlierDistance away from the true
// projection, drawn from the destination scene when possible.
func (g *Generator) outlierFor(projected r2.Point) r2.Point {
	for range 100 {
		p := r2.Point{
			X: g.uniform(-0.25, 1.25) * g.cfg.Width,
			Y: g.uniform(-0.25, 1.25) * g.cfg.Height,
		}
		if geometry.Distance(p, projected) >= g.cfg.MinOutlierDistance {
			return p
		}
	}
	angle := g.uniform(0, 2*math.Pi)
	r := 2*g.cfg.MinOutlierDistance + 1
	return projected.Add(r2.Point{X: math.Cos(angle), Y: math.Sin(angle)}.Mul(r))
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) noise() float64 {
	if g.cfg.Noise == 0 {
		return 0
	}
	return g.rng.NormFloat64() * g.cfg.Noise
}
