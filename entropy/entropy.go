package entropy

import (
	"fmt"
	"math"
)

// DefaultEpsilon is the default reward floor.
const DefaultEpsilon = 1e-9

// Bonus converts per-point density estimates into exploration rewards using
// the -log(density + ε) formulation. The ε floor keeps the bonus finite at
// zero density; the result is clamped at zero so it stays non-negative for
// densities up to one.
type Bonus struct {
	epsilon float64
}

// NewBonus creates a reward bonus with the given ε floor.
func NewBonus(epsilon float64) (*Bonus, error) {
	if epsilon <= 0 {
		return nil, fmt.Errorf("entropy: epsilon must be positive, got %g", epsilon)
	}
	return &Bonus{epsilon: epsilon}, nil
}

// Epsilon returns the configured reward floor.
func (b *Bonus) Epsilon() float64 { return b.epsilon }

// Reward converts densities into exploration bonuses, writing into dst
// (reused when its capacity allows). The bonus is monotonically decreasing
// in density: heavily visited regions earn less.
func (b *Bonus) Reward(dst, densities []float64) []float64 {
	if cap(dst) >= len(densities) {
		dst = dst[:len(densities)]
	} else {
		dst = make([]float64, len(densities))
	}
	for i, d := range densities {
		v := -math.Log(d + b.epsilon)
		if v < 0 {
			v = 0
		}
		dst[i] = v
	}
	return dst
}

// Occupancy returns the Shannon entropy Σ -p·log(p) (in nats) of the
// per-centroid occupancy distribution. Zero counts contribute nothing; an
// all-zero distribution has zero entropy.
func Occupancy(counts []uint64) float64 {
	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}

	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h
}
