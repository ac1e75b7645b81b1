package kmeans

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/entropygo/distance"
)

// InitStrategy selects how initial centroids are seeded from the first batch.
type InitStrategy int

const (
	// InitRandom picks k distinct points uniformly at random.
	InitRandom InitStrategy = iota

	// InitFarthestPoint greedily picks the point with the maximum squared
	// distance to the already-chosen centroids, maximizing initial spread.
	InitFarthestPoint
)

func (s InitStrategy) String() string {
	switch s {
	case InitRandom:
		return "Random"
	case InitFarthestPoint:
		return "FarthestPoint"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// distinctRows returns the row indices of the first occurrence of each
// distinct point in the flattened batch.
func distinctRows(batch []float64, n, dim int) []int {
	seen := make(map[string]struct{}, n)
	idx := make([]int, 0, n)
	key := make([]byte, dim*8)

	for i := 0; i < n; i++ {
		row := batch[i*dim : (i+1)*dim]
		for j, v := range row {
			binary.LittleEndian.PutUint64(key[j*8:], math.Float64bits(v))
		}
		if _, ok := seen[string(key)]; ok {
			continue
		}
		seen[string(key)] = struct{}{}
		idx = append(idx, i)
	}
	return idx
}

// seedCentroids picks k initial centroid positions from the flattened batch.
// When fewer than k distinct points exist it fails with ErrInsufficientData
// unless allowDuplicates is set, in which case the distinct points are cycled.
func seedCentroids(rng *rand.Rand, batch []float64, n, dim, k int, strategy InitStrategy, allowDuplicates bool) ([]float64, error) {
	distinct := distinctRows(batch, n, dim)
	if len(distinct) < k && !allowDuplicates {
		return nil, fmt.Errorf("%w: have %d distinct points, need %d", ErrInsufficientData, len(distinct), k)
	}

	centroids := make([]float64, k*dim)

	if len(distinct) < k {
		// Duplicate fallback: cycle the distinct points in order.
		for i := 0; i < k; i++ {
			src := distinct[i%len(distinct)]
			copy(centroids[i*dim:(i+1)*dim], batch[src*dim:(src+1)*dim])
		}
		return centroids, nil
	}

	switch strategy {
	case InitRandom:
		perm := rng.Perm(len(distinct))
		for i := 0; i < k; i++ {
			src := distinct[perm[i]]
			copy(centroids[i*dim:(i+1)*dim], batch[src*dim:(src+1)*dim])
		}

	case InitFarthestPoint:
		seedFarthestPoint(rng, batch, dim, k, distinct, centroids)

	default:
		return nil, fmt.Errorf("kmeans: unknown init strategy %v", strategy)
	}

	return centroids, nil
}

// seedFarthestPoint implements greedy max-min seeding: the first centroid is
// drawn at random, each subsequent one is the distinct point farthest from
// all chosen centroids. Deterministic given the generator state.
func seedFarthestPoint(rng *rand.Rand, batch []float64, dim, k int, distinct []int, centroids []float64) {
	first := distinct[rng.Intn(len(distinct))]
	copy(centroids[0:dim], batch[first*dim:(first+1)*dim])

	// minDistSq tracks each candidate's squared distance to its nearest
	// chosen centroid, updated incrementally (O(n) per centroid).
	minDistSq := make([]float64, len(distinct))
	for i, src := range distinct {
		minDistSq[i] = distance.SquaredL2(batch[src*dim:(src+1)*dim], centroids[0:dim])
	}

	for c := 1; c < k; c++ {
		best := 0
		for i, d := range minDistSq {
			if d > minDistSq[best] {
				best = i
			}
		}
		src := distinct[best]
		center := centroids[c*dim : (c+1)*dim]
		copy(center, batch[src*dim:(src+1)*dim])

		for i, cand := range distinct {
			d := distance.SquaredL2(batch[cand*dim:(cand+1)*dim], center)
			if d < minDistSq[i] {
				minDistSq[i] = d
			}
		}
	}
}
