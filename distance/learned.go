package distance

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// LearnedLinear measures squared Euclidean distance in a learned linear
// embedding: both operands are mapped through W (e×d) before measuring.
//
// The embedding is learned externally (e.g. by a representation model in the
// training loop) and passed in as a plain matrix; an identity W reduces to
// Euclidean up to rounding.
type LearnedLinear struct {
	w     *mat.Dense
	inner Euclidean
	px    mat.Dense
	cx    mat.Dense
}

// NewLearnedLinear creates a computer that embeds through w (e×d) before
// computing squared Euclidean distances.
func NewLearnedLinear(w *mat.Dense) (*LearnedLinear, error) {
	if w == nil {
		return nil, errors.New("learned linear: nil embedding matrix")
	}
	return &LearnedLinear{w: w}, nil
}

// InputDim returns the expected point dimension d.
func (l *LearnedLinear) InputDim() int {
	_, d := l.w.Dims()
	return d
}

// Pairwise implements Computer.
func (l *LearnedLinear) Pairwise(dst []float64, points, centroids *mat.Dense) []float64 {
	n, _ := points.Dims()
	k, _ := centroids.Dims()
	if n == 0 || k == 0 {
		return dst[:0]
	}

	l.px.Reset()
	l.px.Mul(points, l.w.T())
	l.cx.Reset()
	l.cx.Mul(centroids, l.w.T())

	return l.inner.Pairwise(dst, &l.px, &l.cx)
}

// Point implements Computer.
//
// Unlike Pairwise this allocates per call so that concurrent queries do not
// share scratch state.
func (l *LearnedLinear) Point(dst []float64, p []float64, centroids *mat.Dense) []float64 {
	e, d := l.w.Dims()
	k, _ := centroids.Dims()
	dst = grow(dst, k)

	ep := make([]float64, e)
	ec := make([]float64, e)
	embed := func(out, in []float64) {
		for i := 0; i < e; i++ {
			row := l.w.RawRowView(i)
			var s float64
			for j := 0; j < d; j++ {
				s += row[j] * in[j]
			}
			out[i] = s
		}
	}

	embed(ep, p)
	for j := 0; j < k; j++ {
		embed(ec, centroids.RawRowView(j))
		dst[j] = SquaredL2(ep, ec)
	}
	return dst
}
