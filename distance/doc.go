// Package distance computes squared distances between point batches and
// centroid sets.
//
// The package is built around the Computer interface so that the metric is a
// pluggable strategy: Euclidean is the default, LearnedLinear applies a learned
// linear embedding before measuring. Batched computation uses the expanded-norm
// identity ||x-c||² = ||x||² - 2x·c + ||c||², turning the n×K matrix into one
// matrix multiplication plus two broadcast additions instead of a double loop.
package distance
