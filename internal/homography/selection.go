package homography

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// PointSelection is an ordered list of indices into a point set.
type PointSelection []int

// Clone returns an independent copy of s.
func (s PointSelection) Clone() PointSelection {
	if s == nil {
		return nil
	}
	out := make(PointSelection, len(s))
	copy(out, s)
	return out
}

// HasDuplicates reports whether any index appears more than once.
func (s PointSelection) HasDuplicates() bool {
	seen := make(map[int]struct{}, len(s))
	for _, i := range s {
		if _, ok := seen[i]; ok {
			return true
		}
		seen[i] = struct{}{}
	}
	return false
}

// Sampling selects how minimal samples are drawn.
type Sampling string

const (
	// SamplingDistinct draws indices without replacement.
	SamplingDistinct Sampling = "distinct"
	// SamplingIndependent draws each index independently, so repeats are possible.
	SamplingIndependent Sampling = "independent"
)

// ParseSampling converts a config string to a Sampling value.
func ParseSampling(s string) (Sampling, error) {
	switch Sampling(strings.ToLower(strings.TrimSpace(s))) {
	case "", SamplingDistinct:
		return SamplingDistinct, nil
	case SamplingIndependent:
		return SamplingIndependent, nil
	default:
		return "", fmt.Errorf("%w: unknown sampling %q", ErrInvalidConfig, s)
	}
}

// Sampler draws index samples from its own generator. It is not safe for
// concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler seeded with seed. A zero seed takes one from the clock.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Independent draws k indices uniformly from [0, n). Requires n >= 1.
func (s *Sampler) Independent(n, k int) PointSelection {
	out := make(PointSelection, k)
	for i := range out {
		out[i] = s.rng.IntN(n)
	}
	return out
}

// Distinct draws k distinct indices uniformly from [0, n) by rejection.
// Requires n >= k.
func (s *Sampler) Distinct(n, k int) PointSelection {
	out := make(PointSelection, 0, k)
	for len(out) < k {
		c := s.rng.IntN(n)
		dup := false
		for _, v := range out {
			if v == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// Draw draws k indices using the given policy.
func (s *Sampler) Draw(policy Sampling, n, k int) PointSelection {
	if policy == SamplingIndependent || n < k {
		return s.Independent(n, k)
	}
	return s.Distinct(n, k)
}
