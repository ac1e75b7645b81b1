package kmeans

import "errors"

var (
	// ErrInsufficientData is returned when the seeding batch has fewer
	// distinct points than the requested cluster count.
	ErrInsufficientData = errors.New("kmeans: insufficient distinct points to seed centroids")

	// ErrUninitialized is returned when an operation other than Init is
	// attempted before the encoder has been seeded.
	ErrUninitialized = errors.New("kmeans: encoder not initialized")

	// ErrDimensionMismatch is returned when a point's dimensionality
	// disagrees with the encoder's configured dimension.
	ErrDimensionMismatch = errors.New("kmeans: point dimension mismatch")
)
