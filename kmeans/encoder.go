package kmeans

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/entropygo/distance"
)

// Options configures an Encoder.
type Options struct {
	// Computer is the distance strategy. Defaults to Euclidean.
	Computer distance.Computer

	// Strategy selects the seeding strategy used by Init.
	Strategy InitStrategy

	// Seed seeds the encoder's random generator (shuffling, seeding).
	Seed int64

	// MiniBatchSize subdivides each batch into sequentially processed
	// mini-batches. Zero processes the whole batch at once.
	MiniBatchSize int

	// Shuffle reorders each batch before subdivision to avoid
	// order-correlated bias. Enabled implicitly with MiniBatchSize > 0.
	Shuffle bool

	// AllowDuplicateSeeds makes Init cycle distinct points instead of
	// failing when the seeding batch has fewer than k distinct points.
	AllowDuplicateSeeds bool

	// HomeostasisKappa adds a balancing penalty kappa*(count_i - mean) to
	// assignment distances so starved clusters attract points. Zero
	// disables balancing.
	HomeostasisKappa float64
}

// DefaultOptions are the default encoder options.
var DefaultOptions = Options{
	Strategy: InitFarthestPoint,
	Seed:     1,
}

// UpdateResult reports the observable outcome of one Update call.
type UpdateResult struct {
	// Assignments maps each batch point (original order) to its centroid.
	// Empty when Skipped.
	Assignments []int

	// Counts is a copy of the running per-centroid visit counts after the
	// update.
	Counts []uint64

	// BatchCounts is the number of batch points assigned to each centroid
	// during this update.
	BatchCounts []uint64

	// ClosestDistances holds, per centroid, the smallest squared distance
	// from any batch point to that centroid. Diagnostics only.
	ClosestDistances []float64

	// Skipped reports that the batch was degenerate (fewer than two
	// points) and the encoder state was left untouched.
	Skipped bool
}

// Encoder is an online k-means encoder.
//
// An Encoder is created uninitialized; Init seeds the centroids from a first
// batch and transitions it to ready. Updates assign each batch point to its
// nearest centroid and fold the batch into the running exact centroid means.
//
// Encoder is not safe for concurrent use; callers serialize access (the
// entropygo facade does this with a read-write lock).
type Encoder struct {
	dim  int
	k    int
	opts Options
	comp distance.Computer
	rng  *rand.Rand

	ready     bool
	centroids *mat.Dense // k×dim, nil until initialized
	counts    []uint64

	// Scratch buffers reused across Update calls.
	batchBuf []float64
	distBuf  []float64
	sumBuf   []float64
	cntBuf   []uint64
	penBuf   []float64
}

// NewEncoder creates an uninitialized encoder for k clusters of
// dim-dimensional points.
func NewEncoder(dim, k int, optFns ...func(*Options)) (*Encoder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("kmeans: dimension must be positive, got %d", dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("kmeans: cluster count must be positive, got %d", k)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	comp := opts.Computer
	if comp == nil {
		comp = distance.NewEuclidean()
	}

	return &Encoder{
		dim:    dim,
		k:      k,
		opts:   opts,
		comp:   comp,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		counts: make([]uint64, k),
		sumBuf: make([]float64, k*dim),
		cntBuf: make([]uint64, k),
		penBuf: make([]float64, k),
	}, nil
}

// Dim returns the configured point dimension.
func (e *Encoder) Dim() int { return e.dim }

// K returns the configured cluster count.
func (e *Encoder) K() int { return e.k }

// Ready reports whether the encoder has been seeded.
func (e *Encoder) Ready() bool { return e.ready }

// Init seeds the k centroids from the first batch using the configured
// strategy and resets all visit counts. Calling Init on a ready encoder
// re-seeds it.
func (e *Encoder) Init(batch [][]float64) error {
	if err := e.validate(batch); err != nil {
		return err
	}

	flat := e.flatten(batch, nil)
	seeds, err := seedCentroids(e.rng, flat, len(batch), e.dim, e.k, e.opts.Strategy, e.opts.AllowDuplicateSeeds)
	if err != nil {
		return err
	}

	e.centroids = mat.NewDense(e.k, e.dim, seeds)
	clear(e.counts)
	e.ready = true
	return nil
}

// Update assigns every batch point to its nearest centroid (lowest index wins
// ties) and merges the batch into the running centroid means.
//
// Batches with fewer than two points are skipped: centroid updates are
// degenerate below two samples, so the encoder state is left untouched and
// the result carries Skipped.
//
// The whole batch is validated before any state is mutated, so a failed
// update never leaves a partial contribution behind.
func (e *Encoder) Update(batch [][]float64) (*UpdateResult, error) {
	if !e.ready {
		return nil, ErrUninitialized
	}
	if err := e.validate(batch); err != nil {
		return nil, err
	}

	n := len(batch)
	if n < 2 {
		return &UpdateResult{
			Counts:  e.Counts(),
			Skipped: true,
		}, nil
	}

	// Shuffle before subdivision so mini-batch order carries no bias.
	var order []int
	if e.opts.Shuffle || e.opts.MiniBatchSize > 0 {
		order = e.rng.Perm(n)
	}
	e.batchBuf = e.flatten(batch, order)

	step := e.opts.MiniBatchSize
	if step <= 0 || step > n {
		step = n
	}

	assignments := make([]int, n)
	batchCounts := make([]uint64, e.k)
	closest := make([]float64, e.k)
	for j := range closest {
		closest[j] = math.Inf(1)
	}

	for lo := 0; lo < n; lo += step {
		hi := min(lo+step, n)
		e.updateChunk(lo, hi, order, assignments, batchCounts, closest)
	}

	return &UpdateResult{
		Assignments:      assignments,
		Counts:           e.Counts(),
		BatchCounts:      batchCounts,
		ClosestDistances: closest,
	}, nil
}

// updateChunk assigns and merges one contiguous chunk of the shuffled batch.
func (e *Encoder) updateChunk(lo, hi int, order, assignments []int, batchCounts []uint64, closest []float64) {
	rows := hi - lo
	x := mat.NewDense(rows, e.dim, e.batchBuf[lo*e.dim:hi*e.dim])
	e.distBuf = e.comp.Pairwise(e.distBuf, x, e.centroids)

	penalize := e.opts.HomeostasisKappa != 0
	if penalize {
		mean := meanCounts(e.counts)
		for j := 0; j < e.k; j++ {
			e.penBuf[j] = e.opts.HomeostasisKappa * (float64(e.counts[j]) - mean)
		}
	}

	clear(e.sumBuf)
	clear(e.cntBuf)

	for i := 0; i < rows; i++ {
		row := e.distBuf[i*e.k : (i+1)*e.k]

		best := 0
		bestVal := math.Inf(1)
		for j, d := range row {
			if d < closest[j] {
				closest[j] = d
			}
			if penalize {
				d += e.penBuf[j]
			}
			// Strict less keeps the lowest index on ties.
			if d < bestVal {
				bestVal = d
				best = j
			}
		}

		src := lo + i
		if order != nil {
			src = order[lo+i]
		}
		assignments[src] = best

		e.cntBuf[best]++
		floats.Add(e.sumBuf[best*e.dim:(best+1)*e.dim], e.batchBuf[(lo+i)*e.dim:(lo+i+1)*e.dim])
	}

	// Merge accumulated sums into the running means. Centroids that saw no
	// point this chunk are guarded by the count check and stay untouched;
	// a zero count must never be conflated with centroid index zero.
	for j := 0; j < e.k; j++ {
		cnt := e.cntBuf[j]
		if cnt == 0 {
			continue
		}
		newCount := e.counts[j] + cnt
		center := e.centroids.RawRowView(j)
		sum := e.sumBuf[j*e.dim : (j+1)*e.dim]
		inv := 1 / float64(newCount)
		for d := range center {
			center[d] += (sum[d] - float64(cnt)*center[d]) * inv
		}
		e.counts[j] = newCount
		batchCounts[j] += cnt
	}
}

// Assign returns the nearest centroid for a single point and the squared
// distance to it. Safe for concurrent use between updates.
func (e *Encoder) Assign(p []float64) (int, float64, error) {
	if !e.ready {
		return 0, 0, ErrUninitialized
	}
	if len(p) != e.dim {
		return 0, 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(p), e.dim)
	}

	dists := e.comp.Point(nil, p, e.centroids)
	best := 0
	for j, d := range dists {
		if d < dists[best] {
			best = j
		}
	}
	return best, dists[best], nil
}

// CentroidsView returns the live centroid matrix. The view is read-only and
// valid until the next Update, Init or Reset call.
func (e *Encoder) CentroidsView() *mat.Dense {
	return e.centroids
}

// Centroids returns a copy of the current centroid positions, or nil if the
// encoder is uninitialized.
func (e *Encoder) Centroids() *mat.Dense {
	if e.centroids == nil {
		return nil
	}
	return mat.DenseCopyOf(e.centroids)
}

// Counts returns a copy of the per-centroid visit counts.
func (e *Encoder) Counts() []uint64 {
	out := make([]uint64, len(e.counts))
	copy(out, e.counts)
	return out
}

// CountsView returns the live visit counts. Read-only, valid until the next
// Update, Init or Reset call.
func (e *Encoder) CountsView() []uint64 {
	return e.counts
}

// TotalCount returns the total number of points ever assigned.
func (e *Encoder) TotalCount() uint64 {
	var total uint64
	for _, c := range e.counts {
		total += c
	}
	return total
}

// Reset returns the encoder to the uninitialized state, discarding centroids
// and counts.
func (e *Encoder) Reset() {
	e.ready = false
	e.centroids = nil
	clear(e.counts)
}

// Clone returns a deep copy of the encoder sharing no mutable state, so a
// caller can simulate an update without committing it.
func (e *Encoder) Clone() *Encoder {
	cp := &Encoder{
		dim:    e.dim,
		k:      e.k,
		opts:   e.opts,
		comp:   e.comp,
		rng:    rand.New(rand.NewSource(e.rng.Int63())),
		ready:  e.ready,
		counts: make([]uint64, len(e.counts)),
		sumBuf: make([]float64, e.k*e.dim),
		cntBuf: make([]uint64, e.k),
		penBuf: make([]float64, e.k),
	}
	copy(cp.counts, e.counts)
	if e.centroids != nil {
		cp.centroids = mat.DenseCopyOf(e.centroids)
	}
	return cp
}

// Restore replaces the encoder state with the given centroids and counts,
// marking it ready. Used when loading a snapshot.
func (e *Encoder) Restore(centroids []float64, counts []uint64) error {
	if len(centroids) != e.k*e.dim {
		return fmt.Errorf("%w: centroid data length %d, want %d", ErrDimensionMismatch, len(centroids), e.k*e.dim)
	}
	if len(counts) != e.k {
		return fmt.Errorf("kmeans: count length %d, want %d", len(counts), e.k)
	}

	data := make([]float64, len(centroids))
	copy(data, centroids)
	e.centroids = mat.NewDense(e.k, e.dim, data)
	copy(e.counts, counts)
	e.ready = true
	return nil
}

// validate checks every batch point's dimension before any mutation.
func (e *Encoder) validate(batch [][]float64) error {
	for i, p := range batch {
		if len(p) != e.dim {
			return fmt.Errorf("%w: point %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(p), e.dim)
		}
	}
	return nil
}

// flatten copies batch rows into the reusable flat buffer, applying the
// permutation when given.
func (e *Encoder) flatten(batch [][]float64, order []int) []float64 {
	n := len(batch)
	need := n * e.dim
	buf := e.batchBuf
	if cap(buf) < need {
		buf = make([]float64, need)
	}
	buf = buf[:need]

	for i := 0; i < n; i++ {
		src := i
		if order != nil {
			src = order[i]
		}
		copy(buf[i*e.dim:(i+1)*e.dim], batch[src])
	}
	return buf
}

func meanCounts(counts []uint64) float64 {
	if len(counts) == 0 {
		return 0
	}
	var total uint64
	for _, c := range counts {
		total += c
	}
	return float64(total) / float64(len(counts))
}
