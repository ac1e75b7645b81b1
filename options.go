package entropygo

import (
	"log/slog"

	"github.com/hupe1980/entropygo/density"
	"github.com/hupe1980/entropygo/distance"
	"github.com/hupe1980/entropygo/entropy"
	"github.com/hupe1980/entropygo/kmeans"
)

type options struct {
	computer            distance.Computer
	initStrategy        kmeans.InitStrategy
	seed                int64
	miniBatchSize       int
	shuffle             bool
	allowDuplicateSeeds bool
	homeostasisKappa    float64
	densityMode         density.Mode
	smoothingNeighbors  int
	epsilon             float64
	logger              *Logger
	metricsCollector    MetricsCollector
}

// Option configures estimator construction.
type Option func(*options)

// WithDistance sets the distance computer. Defaults to squared Euclidean;
// pass a distance.LearnedLinear to measure in a learned embedding.
func WithDistance(c distance.Computer) Option {
	return func(o *options) {
		if c != nil {
			o.computer = c
		}
	}
}

// WithInitStrategy selects the centroid seeding strategy used by Init.
func WithInitStrategy(s kmeans.InitStrategy) Option {
	return func(o *options) {
		o.initStrategy = s
	}
}

// WithSeed seeds the estimator's random generator (seeding and batch
// shuffling). The default seed is 1; estimators with equal configuration and
// input produce identical centroids.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMiniBatchSize subdivides each update batch into sequentially processed
// mini-batches of the given size. Batches are shuffled before subdivision.
// Zero (the default) processes each batch whole.
func WithMiniBatchSize(size int) Option {
	return func(o *options) {
		o.miniBatchSize = size
	}
}

// WithShuffle reorders batches before processing even without mini-batching.
func WithShuffle(shuffle bool) Option {
	return func(o *options) {
		o.shuffle = shuffle
	}
}

// WithDuplicateFallback makes Init cycle the available distinct points when
// the seeding batch has fewer distinct points than clusters, instead of
// failing with ErrInsufficientData.
func WithDuplicateFallback(allow bool) Option {
	return func(o *options) {
		o.allowDuplicateSeeds = allow
	}
}

// WithHomeostasis adds a balancing penalty kappa*(count_i - mean) to
// assignment distances during updates so starved clusters attract points.
// Zero kappa disables balancing.
func WithHomeostasis(kappa float64) Option {
	return func(o *options) {
		o.homeostasisKappa = kappa
	}
}

// WithDensityMode selects between discrete nearest-centroid mass and
// inverse-distance smoothed density.
func WithDensityMode(mode density.Mode) Option {
	return func(o *options) {
		o.densityMode = mode
	}
}

// WithSmoothingNeighbors sets the number of nearest centroids blended in
// smoothed density mode.
func WithSmoothingNeighbors(m int) Option {
	return func(o *options) {
		o.smoothingNeighbors = m
	}
}

// WithEpsilon sets the reward floor ε of the -log(density + ε) bonus.
func WithEpsilon(epsilon float64) Option {
	return func(o *options) {
		o.epsilon = epsilon
	}
}

// WithLogger configures structured logging for operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		initStrategy:       kmeans.InitFarthestPoint,
		seed:               1,
		densityMode:        density.Discrete,
		smoothingNeighbors: 3,
		epsilon:            entropy.DefaultEpsilon,
		logger:             NoopLogger(),
		metricsCollector:   NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
