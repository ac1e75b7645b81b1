package entropygo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/entropygo/density"
	"github.com/hupe1980/entropygo/entropy"
	"github.com/hupe1980/entropygo/kmeans"
)

// UpdateResult reports the observable outcome of one Update call.
type UpdateResult = kmeans.UpdateResult

// Snapshot is a consistent, caller-owned view of the estimator state.
// Centroids and counts are the minimal sufficient state to resume.
type Snapshot struct {
	ID        string
	Dim       int
	K         int
	Centroids [][]float64
	Counts    []uint64
}

// Estimator is an online visitation-density and entropy estimator.
//
// One estimator instance has a single logical owner for mutations: Update,
// Init and Reset take the write lock and run exclusively, while Density,
// Reward, OccupancyEntropy and Snapshot take the read lock and may run
// concurrently with each other. Readers always observe either the pre- or
// post-update centroid set, never a partially merged one.
type Estimator struct {
	mu sync.RWMutex

	id      string
	dim     int
	k       int
	opts    options
	enc     *kmeans.Encoder
	den     *density.Estimator
	bonus   *entropy.Bonus
	logger  *Logger
	metrics MetricsCollector
}

// New creates an uninitialized estimator for k clusters of dim-dimensional
// states. Call Init with a first batch before updating or querying.
func New(dim, k int, optFns ...Option) (*Estimator, error) {
	opts := applyOptions(optFns)

	enc, err := kmeans.NewEncoder(dim, k, func(o *kmeans.Options) {
		o.Computer = opts.computer
		o.Strategy = opts.initStrategy
		o.Seed = opts.seed
		o.MiniBatchSize = opts.miniBatchSize
		o.Shuffle = opts.shuffle
		o.AllowDuplicateSeeds = opts.allowDuplicateSeeds
		o.HomeostasisKappa = opts.homeostasisKappa
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	den, err := density.New(opts.densityMode, opts.smoothingNeighbors, opts.computer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	bonus, err := entropy.NewBonus(opts.epsilon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := uuid.NewString()

	return &Estimator{
		id:      id,
		dim:     dim,
		k:       k,
		opts:    opts,
		enc:     enc,
		den:     den,
		bonus:   bonus,
		logger:  opts.logger.WithEstimator(id, dim, k),
		metrics: opts.metricsCollector,
	}, nil
}

// ID returns the estimator's unique identity, used in logs and snapshots.
func (e *Estimator) ID() string { return e.id }

// Dim returns the configured state dimension.
func (e *Estimator) Dim() int { return e.dim }

// K returns the configured cluster count.
func (e *Estimator) K() int { return e.k }

// Ready reports whether the estimator has been initialized.
func (e *Estimator) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enc.Ready()
}

// Init seeds the centroids from the first batch using the configured
// strategy. It fails with ErrInsufficientData when the batch has fewer
// distinct points than clusters (unless the duplicate fallback is enabled).
// Calling Init on a ready estimator re-seeds it and resets all counts.
func (e *Estimator) Init(ctx context.Context, batch [][]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.enc.Init(batch)
	e.logger.LogInit(ctx, len(batch), e.opts.initStrategy.String(), err)
	return err
}

// Update folds a batch of states into the estimator: each point is assigned
// to its nearest centroid and the running centroid means and visit counts
// are updated. Batches with fewer than two points are skipped (degenerate),
// leaving the state untouched; the result reports Skipped.
func (e *Estimator) Update(ctx context.Context, batch [][]float64) (*UpdateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res, err := e.enc.Update(batch)

	skipped := err == nil && res.Skipped
	e.metrics.RecordUpdate(len(batch), skipped, time.Since(start), err)
	e.logger.LogUpdate(ctx, len(batch), skipped, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Density estimates the visitation density at each query point. With no
// visits recorded yet the uniform bootstrap mass 1/K is returned.
func (e *Estimator) Density(ctx context.Context, points [][]float64) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	out, err := e.densityLocked(points)
	e.metrics.RecordQuery("density", len(points), time.Since(start), err)
	e.logger.LogQuery(ctx, "density", len(points), err)
	return out, err
}

// Reward returns the exploration bonus -log(density + ε) for each query
// point. The bonus is finite, non-negative and strictly decreasing in
// density: under-visited regions earn more.
func (e *Estimator) Reward(ctx context.Context, points [][]float64) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	densities, err := e.densityLocked(points)
	if err == nil {
		densities = e.bonus.Reward(densities, densities)
	}
	e.metrics.RecordQuery("reward", len(points), time.Since(start), err)
	e.logger.LogQuery(ctx, "reward", len(points), err)
	return densities, err
}

// OccupancyEntropy returns the Shannon entropy (nats) of the per-centroid
// occupancy distribution, a batch-level measure of how evenly the state
// space has been visited.
func (e *Estimator) OccupancyEntropy() (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enc.Ready() {
		return 0, ErrUninitialized
	}
	return entropy.Occupancy(e.enc.CountsView()), nil
}

// Snapshot returns a consistent copy of the current centroids and counts for
// visualization or export.
func (e *Estimator) Snapshot() (*Snapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enc.Ready() {
		return nil, ErrUninitialized
	}

	centroids := e.enc.CentroidsView()
	out := &Snapshot{
		ID:        e.id,
		Dim:       e.dim,
		K:         e.k,
		Centroids: make([][]float64, e.k),
		Counts:    e.enc.Counts(),
	}
	for j := 0; j < e.k; j++ {
		row := make([]float64, e.dim)
		copy(row, centroids.RawRowView(j))
		out.Centroids[j] = row
	}
	return out, nil
}

// Reset returns the estimator to the uninitialized state, discarding
// centroids and counts. A subsequent Init re-seeds it.
func (e *Estimator) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enc.Reset()
	e.logger.LogReset(ctx)
}

// Clone returns a deep copy of the estimator under a fresh identity, so a
// caller can simulate an update without committing it to the original.
//
// The clone shares the configured distance computer; because its batched
// path reuses scratch buffers, updates on the original and the clone must
// not run concurrently.
func (e *Estimator) Clone() *Estimator {
	e.mu.RLock()
	defer e.mu.RUnlock()

	id := uuid.NewString()
	return &Estimator{
		id:      id,
		dim:     e.dim,
		k:       e.k,
		opts:    e.opts,
		enc:     e.enc.Clone(),
		den:     e.den,
		bonus:   e.bonus,
		logger:  e.opts.logger.WithEstimator(id, e.dim, e.k),
		metrics: e.metrics,
	}
}

// densityLocked computes densities under a held read lock.
func (e *Estimator) densityLocked(points [][]float64) ([]float64, error) {
	if !e.enc.Ready() {
		return nil, ErrUninitialized
	}
	for i, p := range points {
		if len(p) != e.dim {
			return nil, fmt.Errorf("%w: point %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(p), e.dim)
		}
	}
	return e.den.Batch(nil, points, e.enc.CentroidsView(), e.enc.CountsView()), nil
}
