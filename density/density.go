package density

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/entropygo/distance"
)

// Mode selects the density estimation strategy.
type Mode int

const (
	// Discrete attributes the nearest centroid's probability mass.
	Discrete Mode = iota

	// Smoothed blends the m nearest centroids' masses by inverse distance.
	Smoothed
)

func (m Mode) String() string {
	switch m {
	case Discrete:
		return "Discrete"
	case Smoothed:
		return "Smoothed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Estimator converts occupancy statistics into per-point density estimates.
//
// Estimator holds no mutable state and is safe for concurrent use as long as
// the Computer's Point method is (both package variants are).
type Estimator struct {
	mode      Mode
	neighbors int
	comp      distance.Computer
}

// New creates a density estimator. neighbors is the m of Smoothed mode and is
// ignored by Discrete mode; it is clamped to the centroid count at query time.
func New(mode Mode, neighbors int, comp distance.Computer) (*Estimator, error) {
	if mode != Discrete && mode != Smoothed {
		return nil, fmt.Errorf("density: unknown mode %v", mode)
	}
	if mode == Smoothed && neighbors <= 0 {
		return nil, fmt.Errorf("density: smoothing neighbors must be positive, got %d", neighbors)
	}
	if comp == nil {
		comp = distance.NewEuclidean()
	}
	return &Estimator{mode: mode, neighbors: neighbors, comp: comp}, nil
}

// Mode returns the configured estimation mode.
func (e *Estimator) Mode() Mode { return e.mode }

// Point estimates the visitation density at a single query point given the
// current centroids and visit counts.
//
// With zero total visits there is no occupancy signal yet, so the uniform
// bootstrap mass 1/K is returned instead of dividing by zero.
func (e *Estimator) Point(p []float64, centroids *mat.Dense, counts []uint64) float64 {
	k := len(counts)
	if k == 0 {
		return 0
	}

	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 1 / float64(k)
	}

	dists := e.comp.Point(nil, p, centroids)

	if e.mode == Discrete {
		best := 0
		for j, d := range dists {
			if d < dists[best] {
				best = j
			}
		}
		return float64(counts[best]) / float64(total)
	}

	return e.smoothed(dists, counts, total)
}

// Batch estimates the density for every point, writing into dst (reused when
// its capacity allows).
func (e *Estimator) Batch(dst []float64, points [][]float64, centroids *mat.Dense, counts []uint64) []float64 {
	if cap(dst) >= len(points) {
		dst = dst[:len(points)]
	} else {
		dst = make([]float64, len(points))
	}
	for i, p := range points {
		dst[i] = e.Point(p, centroids, counts)
	}
	return dst
}

// smoothed blends the m nearest centroids' masses with an inverse-distance
// kernel 1/(1+d). The kernel is 1 at a centroid and decays with squared
// distance, so the estimate stays in [0,1], approaches the discrete mass at
// a centroid and falls off in unvisited regions.
func (e *Estimator) smoothed(dists []float64, counts []uint64, total uint64) float64 {
	k := len(counts)
	m := min(e.neighbors, k)

	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		if dists[idx[a]] != dists[idx[b]] {
			return dists[idx[a]] < dists[idx[b]]
		}
		return idx[a] < idx[b]
	})

	var sum float64
	for _, j := range idx[:m] {
		sum += float64(counts[j]) / float64(total) / (1 + dists[j])
	}
	return sum
}
