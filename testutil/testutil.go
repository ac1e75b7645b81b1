package testutil

import (
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformVectors generates random vectors with values in range [0, 1).
func (r *RNG) UniformVectors(num, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range vectors {
		vec := make([]float64, dimensions)
		for j := range vec {
			vec[j] = r.rand.Float64()
		}
		vectors[i] = vec
	}
	return vectors
}

// GaussianVectors generates random vectors drawn from a standard normal
// distribution.
func (r *RNG) GaussianVectors(num, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range vectors {
		vec := make([]float64, dimensions)
		for j := range vec {
			vec[j] = r.rand.NormFloat64()
		}
		vectors[i] = vec
	}
	return vectors
}

// ClusteredVectors generates vectors scattered around `clusters` Gaussian
// centers with the given spread. Useful for exercising seeding and
// assignment on non-uniform data.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float64) [][]float64 {
	centers := r.GaussianVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range vectors {
		center := centers[i%clusters]
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = center[j] + r.rand.NormFloat64()*spread
		}
		vectors[i] = vec
	}
	return vectors
}

// BruteForceAssign maps each point to the index of its nearest centroid by
// exhaustive squared-distance comparison, lowest index winning ties.
func BruteForceAssign(points [][]float64, centroids *mat.Dense) []int {
	k, _ := centroids.Dims()
	out := make([]int, len(points))

	for i, p := range points {
		best := 0
		bestVal := squaredL2(p, centroids.RawRowView(0))
		for j := 1; j < k; j++ {
			if d := squaredL2(p, centroids.RawRowView(j)); d < bestVal {
				bestVal = d
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// Mean returns the coordinate-wise mean of the selected points.
func Mean(points [][]float64, idx []int, dim int) []float64 {
	mean := make([]float64, dim)
	if len(idx) == 0 {
		return mean
	}
	for _, i := range idx {
		for d, v := range points[i] {
			mean[d] += v
		}
	}
	inv := 1 / float64(len(idx))
	for d := range mean {
		mean[d] *= inv
	}
	return mean
}

func squaredL2(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}
