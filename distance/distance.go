package distance

import (
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// parallelThreshold is the matrix size (n*k) above which the broadcast fill
// is split across GOMAXPROCS goroutines.
const parallelThreshold = 1 << 15

// Computer computes squared distances between points and centroids.
//
// Pairwise reuses internal scratch buffers across calls and is therefore NOT
// safe for concurrent use; it belongs to the exclusive update path. Point is
// pure and may be called concurrently from read-only query paths.
type Computer interface {
	// Pairwise returns the n×k matrix of squared distances between the rows
	// of points (n×d) and the rows of centroids (k×d), flattened row-major
	// into dst. The backing array of dst is reused when its capacity allows.
	// If n == 0 or k == 0 the result is empty.
	Pairwise(dst []float64, points, centroids *mat.Dense) []float64

	// Point returns the squared distances from p to every row of centroids,
	// written into dst. Safe for concurrent use.
	Point(dst []float64, p []float64, centroids *mat.Dense) []float64
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

// Euclidean computes squared Euclidean distances.
//
// The zero value is ready to use.
type Euclidean struct {
	pnorms []float64
	cnorms []float64
	prod   mat.Dense
}

// NewEuclidean creates a new Euclidean computer.
func NewEuclidean() *Euclidean {
	return &Euclidean{}
}

// Pairwise implements Computer.
func (e *Euclidean) Pairwise(dst []float64, points, centroids *mat.Dense) []float64 {
	n, _ := points.Dims()
	k, _ := centroids.Dims()
	if n == 0 || k == 0 {
		return dst[:0]
	}

	e.pnorms = rowNorms(e.pnorms, points)
	e.cnorms = rowNorms(e.cnorms, centroids)

	// Gram matrix G = points · centroidsᵀ, the single matmul of the
	// expanded-norm identity. Reset keeps the backing array for reuse.
	e.prod.Reset()
	e.prod.Mul(points, centroids.T())

	dst = grow(dst, n*k)

	fill := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := dst[i*k : (i+1)*k]
			g := e.prod.RawRowView(i)
			pn := e.pnorms[i]
			for j := 0; j < k; j++ {
				v := pn - 2*g[j] + e.cnorms[j]
				if v < 0 {
					// Rounding in the expansion can go slightly negative.
					v = 0
				}
				row[j] = v
			}
		}
	}

	if n*k < parallelThreshold {
		fill(0, n)
		return dst
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fill(lo, hi)
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return dst
}

// Point implements Computer.
func (e *Euclidean) Point(dst []float64, p []float64, centroids *mat.Dense) []float64 {
	k, _ := centroids.Dims()
	dst = grow(dst, k)
	for j := 0; j < k; j++ {
		dst[j] = SquaredL2(p, centroids.RawRowView(j))
	}
	return dst
}

// rowNorms writes the squared L2 norm of each row of m into dst.
func rowNorms(dst []float64, m *mat.Dense) []float64 {
	r, _ := m.Dims()
	dst = grow(dst, r)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		dst[i] = floats.Dot(row, row)
	}
	return dst
}

// grow returns dst resized to length n, reusing its backing array when the
// capacity allows.
func grow(dst []float64, n int) []float64 {
	if cap(dst) >= n {
		return dst[:n]
	}
	return make([]float64, n)
}
