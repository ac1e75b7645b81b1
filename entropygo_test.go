package entropygo

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entropygo/density"
	"github.com/hupe1980/entropygo/kmeans"
	"github.com/hupe1980/entropygo/testutil"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		k    int
		opts []Option
	}{
		{name: "zero dim", dim: 0, k: 2},
		{name: "zero k", dim: 2, k: 0},
		{name: "negative k", dim: 2, k: -3},
		{name: "zero epsilon", dim: 2, k: 2, opts: []Option{WithEpsilon(0)}},
		{name: "bad smoothing neighbors", dim: 2, k: 2, opts: []Option{
			WithDensityMode(density.Smoothed),
			WithSmoothingNeighbors(-1),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.dim, tt.k, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	est, err := New(8, 4)
	require.NoError(t, err)

	assert.Equal(t, 8, est.Dim())
	assert.Equal(t, 4, est.K())
	assert.NotEmpty(t, est.ID())
	assert.False(t, est.Ready())
}

func TestUninitializedOperations(t *testing.T) {
	ctx := context.Background()
	est, err := New(2, 2)
	require.NoError(t, err)

	_, err = est.Update(ctx, [][]float64{{1, 2}, {3, 4}})
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = est.Density(ctx, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = est.Reward(ctx, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = est.OccupancyEntropy()
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = est.Snapshot()
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestBootstrapDensity(t *testing.T) {
	ctx := context.Background()
	est, err := New(2, 4)
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}))

	// Seeded but never updated: uniform mass over the clusters.
	got, err := est.Density(ctx, [][]float64{{0.5, 0.5}, {100, 100}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got[0], 1e-12)
	assert.InDelta(t, 0.25, got[1], 1e-12)
}

func TestEndToEndExplorationBonus(t *testing.T) {
	ctx := context.Background()
	est, err := New(2, 2,
		WithDensityMode(density.Smoothed),
		WithSmoothingNeighbors(2),
		WithSeed(7),
	)
	require.NoError(t, err)

	batch := [][]float64{{0, 0}, {0, 0}, {10, 10}, {10, 10}}
	require.NoError(t, est.Init(ctx, batch))

	res, err := est.Update(ctx, batch)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, uint64(4), res.Counts[0]+res.Counts[1])
	assert.Equal(t, uint64(2), res.Counts[0])
	assert.Equal(t, uint64(2), res.Counts[1])

	// A state on top of visited mass must earn a smaller bonus than an
	// unvisited one between the clusters.
	rewards, err := est.Reward(ctx, [][]float64{{0, 0}, {5, 5}})
	require.NoError(t, err)
	require.Len(t, rewards, 2)

	for _, r := range rewards {
		assert.False(t, math.IsInf(r, 0))
		assert.False(t, math.IsNaN(r))
		assert.GreaterOrEqual(t, r, 0.0)
	}
	assert.Less(t, rewards[0], rewards[1], "visited state must earn less than unvisited")

	// Even occupancy over two clusters: maximal entropy ln 2.
	h, err := est.OccupancyEntropy()
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), h, 1e-12)
}

func TestDensityQueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	est, err := New(2, 2)
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, [][]float64{{0, 0}, {1, 1}}))

	_, err = est.Density(ctx, [][]float64{{0, 0}, {1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = est.Reward(ctx, [][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSnapshotConsistentCopy(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(17)
	est, err := New(3, 2)
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, rng.GaussianVectors(8, 3)))

	_, err = est.Update(ctx, rng.GaussianVectors(20, 3))
	require.NoError(t, err)

	snap, err := est.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, est.ID(), snap.ID)
	assert.Equal(t, 3, snap.Dim)
	assert.Equal(t, 2, snap.K)
	require.Len(t, snap.Centroids, 2)

	// The snapshot is caller-owned: mutating it must not leak back.
	before, err := est.Density(ctx, [][]float64{{0, 0, 0}})
	require.NoError(t, err)

	snap.Centroids[0][0] = 1e9
	snap.Counts[0] = 0

	after, err := est.Density(ctx, [][]float64{{0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, before[0], after[0])
}

func TestResetLifecycle(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(18)
	est, err := New(2, 2)
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, rng.GaussianVectors(6, 2)))
	require.True(t, est.Ready())

	est.Reset(ctx)
	assert.False(t, est.Ready())

	_, err = est.Density(ctx, [][]float64{{0, 0}})
	assert.ErrorIs(t, err, ErrUninitialized)

	// Reset estimators can be re-seeded.
	require.NoError(t, est.Init(ctx, rng.GaussianVectors(6, 2)))
	assert.True(t, est.Ready())
}

func TestCloneSimulatesWithoutCommitting(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(19)
	est, err := New(2, 2)
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, rng.GaussianVectors(6, 2)))
	_, err = est.Update(ctx, rng.GaussianVectors(10, 2))
	require.NoError(t, err)

	before, err := est.Snapshot()
	require.NoError(t, err)

	clone := est.Clone()
	assert.NotEqual(t, est.ID(), clone.ID())

	_, err = clone.Update(ctx, rng.GaussianVectors(10, 2))
	require.NoError(t, err)

	after, err := est.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Centroids, after.Centroids)
	assert.Equal(t, before.Counts, after.Counts)

	cloneSnap, err := clone.Snapshot()
	require.NoError(t, err)
	assert.NotEqual(t, before.Counts, cloneSnap.Counts)
}

func TestInitStrategyOption(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(20)
	batch := rng.ClusteredVectors(30, 2, 3, 0.1)

	for _, strategy := range []kmeans.InitStrategy{kmeans.InitRandom, kmeans.InitFarthestPoint} {
		t.Run(strategy.String(), func(t *testing.T) {
			est, err := New(2, 3, WithInitStrategy(strategy), WithSeed(5))
			require.NoError(t, err)
			require.NoError(t, est.Init(ctx, batch))
			assert.True(t, est.Ready())
		})
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(23)
	initBatch := rng.GaussianVectors(12, 2)
	updateBatch := rng.GaussianVectors(30, 2)

	run := func() *Snapshot {
		est, err := New(2, 3, WithSeed(101), WithShuffle(true))
		require.NoError(t, err)
		require.NoError(t, est.Init(ctx, initBatch))
		_, err = est.Update(ctx, updateBatch)
		require.NoError(t, err)
		snap, err := est.Snapshot()
		require.NoError(t, err)
		return snap
	}

	a, b := run(), run()
	assert.Equal(t, a.Centroids, b.Centroids)
	assert.Equal(t, a.Counts, b.Counts)
}

func TestConcurrentReadsDuringUpdates(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(29)
	est, err := New(2, 4)
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, rng.GaussianVectors(16, 2)))

	const (
		batches   = 25
		batchSize = 8
	)
	updates := make([][][]float64, batches)
	for i := range updates {
		updates[i] = rng.GaussianVectors(batchSize, 2)
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for _, b := range updates {
			_, err := est.Update(ctx, b)
			assert.NoError(t, err)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := est.Reward(ctx, [][]float64{{0, 0}, {1, 1}})
			assert.NoError(t, err)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap, err := est.Snapshot()
			if !assert.NoError(t, err) {
				continue
			}
			var total uint64
			for _, c := range snap.Counts {
				total += c
			}
			// Updates commit whole batches, so any consistent view holds a
			// multiple of the batch size.
			assert.Zero(t, total%batchSize, "torn read: %d points", total)
		}
	}()

	wg.Wait()

	snap, err := est.Snapshot()
	require.NoError(t, err)
	var total uint64
	for _, c := range snap.Counts {
		total += c
	}
	assert.Equal(t, uint64(batches*batchSize), total)
}

func TestBasicMetricsCollector(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(31)
	mc := &BasicMetricsCollector{}

	est, err := New(2, 2, WithMetricsCollector(mc))
	require.NoError(t, err)
	require.NoError(t, est.Init(ctx, rng.GaussianVectors(6, 2)))

	_, err = est.Update(ctx, rng.GaussianVectors(10, 2))
	require.NoError(t, err)

	res, err := est.Update(ctx, [][]float64{{1, 1}})
	require.NoError(t, err)
	require.True(t, res.Skipped)

	_, err = est.Density(ctx, rng.GaussianVectors(3, 2))
	require.NoError(t, err)
	_, err = est.Reward(ctx, rng.GaussianVectors(2, 2))
	require.NoError(t, err)
	_, err = est.Reward(ctx, [][]float64{{1}})
	require.Error(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.UpdateCount)
	assert.Equal(t, int64(1), stats.UpdateSkipped)
	assert.Equal(t, int64(0), stats.UpdateErrors)
	assert.Equal(t, int64(11), stats.UpdatePoints)
	assert.Equal(t, int64(3), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryErrors)
	assert.Equal(t, int64(6), stats.QueryPoints)
}
