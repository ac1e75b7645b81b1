package entropygo

import (
	"errors"

	"github.com/hupe1980/entropygo/kmeans"
)

var (
	// ErrInsufficientData is returned by Init when the seeding batch has
	// fewer distinct points than the configured cluster count.
	ErrInsufficientData = kmeans.ErrInsufficientData

	// ErrUninitialized is returned when any operation except Init is
	// called before the estimator is ready.
	ErrUninitialized = kmeans.ErrUninitialized

	// ErrDimensionMismatch is returned when a point's dimensionality
	// disagrees with the estimator's configured dimension.
	ErrDimensionMismatch = kmeans.ErrDimensionMismatch

	// ErrInvalidConfig is returned by New for out-of-range configuration.
	ErrInvalidConfig = errors.New("entropygo: invalid configuration")
)
