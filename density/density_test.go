package density

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestModeString(t *testing.T) {
	assert.Equal(t, "Discrete", Discrete.String())
	assert.Equal(t, "Smoothed", Smoothed.String())
	assert.Equal(t, "Unknown(7)", Mode(7).String())
}

func TestNewValidation(t *testing.T) {
	_, err := New(Mode(42), 0, nil)
	assert.Error(t, err)

	_, err = New(Smoothed, 0, nil)
	assert.Error(t, err)

	_, err = New(Discrete, 0, nil)
	assert.NoError(t, err, "neighbors unused in discrete mode")
}

func TestBootstrapUniform(t *testing.T) {
	centroids := mat.NewDense(4, 2, []float64{0, 0, 1, 1, 2, 2, 3, 3})
	counts := []uint64{0, 0, 0, 0}

	for _, mode := range []Mode{Discrete, Smoothed} {
		t.Run(mode.String(), func(t *testing.T) {
			est, err := New(mode, 2, nil)
			require.NoError(t, err)

			got := est.Point([]float64{10, 10}, centroids, counts)
			assert.InDelta(t, 0.25, got, 1e-12, "uniform 1/K before any visits")
		})
	}
}

func TestDiscreteMass(t *testing.T) {
	centroids := mat.NewDense(2, 2, []float64{0, 0, 10, 10})
	counts := []uint64{3, 1}

	est, err := New(Discrete, 0, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, est.Point([]float64{0.5, 0}, centroids, counts), 1e-12)
	assert.InDelta(t, 0.25, est.Point([]float64{9, 10}, centroids, counts), 1e-12)

	// Equidistant queries resolve to the lowest index.
	assert.InDelta(t, 0.75, est.Point([]float64{5, 5}, centroids, counts), 1e-12)
}

func TestSmoothedDecaysWithDistance(t *testing.T) {
	centroids := mat.NewDense(2, 2, []float64{0, 0, 10, 10})
	counts := []uint64{2, 2}

	est, err := New(Smoothed, 2, nil)
	require.NoError(t, err)

	atCentroid := est.Point([]float64{0, 0}, centroids, counts)
	between := est.Point([]float64{5, 5}, centroids, counts)
	far := est.Point([]float64{50, 50}, centroids, counts)

	assert.Greater(t, atCentroid, between, "density must fall away from visited mass")
	assert.Greater(t, between, far)
	assert.LessOrEqual(t, atCentroid, 1.0)
	assert.GreaterOrEqual(t, far, 0.0)
}

func TestSmoothedApproachesDiscreteAtCentroid(t *testing.T) {
	centroids := mat.NewDense(2, 1, []float64{0, 1000})
	counts := []uint64{7, 3}

	est, err := New(Smoothed, 1, nil)
	require.NoError(t, err)

	// With m=1 and a query on the centroid, the kernel is 1 and the
	// estimate is exactly the discrete mass.
	assert.InDelta(t, 0.7, est.Point([]float64{0}, centroids, counts), 1e-9)
}

func TestSmoothedNeighborsClamped(t *testing.T) {
	centroids := mat.NewDense(2, 1, []float64{0, 4})
	counts := []uint64{1, 1}

	est, err := New(Smoothed, 10, nil)
	require.NoError(t, err)

	// m larger than K blends everything without panicking.
	got := est.Point([]float64{2}, centroids, counts)
	assert.InDelta(t, 2*(0.5/5.0), got, 1e-12)
}

func TestBatch(t *testing.T) {
	centroids := mat.NewDense(2, 1, []float64{0, 10})
	counts := []uint64{1, 1}

	est, err := New(Discrete, 0, nil)
	require.NoError(t, err)

	points := [][]float64{{1}, {9}, {4}}
	got := est.Batch(nil, points, centroids, counts)
	require.Len(t, got, 3)
	for _, v := range got {
		assert.InDelta(t, 0.5, v, 1e-12)
	}

	// Buffer reuse.
	buf := make([]float64, 0, 8)
	got2 := est.Batch(buf, points, centroids, counts)
	assert.Same(t, &buf[:1][0], &got2[:1][0])
}
