// Package entropygo provides an online density and entropy estimator over
// streaming batches of high-dimensional states, producing exploration reward
// bonuses for reinforcement-learning agents.
//
// The estimator maintains a bounded set of centroids with an online k-means
// encoder, derives per-cluster probability mass from visit counts, and
// converts it into a -log(density + ε) exploration signal: under-visited
// regions of the state space earn higher bonuses.
//
// Basic usage:
//
//	est, _ := entropygo.New(dim, 16,
//		entropygo.WithInitStrategy(kmeans.InitFarthestPoint),
//		entropygo.WithSeed(42),
//	)
//	if err := est.Init(ctx, firstBatch); err != nil { ... }
//	for batch := range states {
//		res, _ := est.Update(ctx, batch)
//		rewards, _ := est.Reward(ctx, batch)
//		_ = res
//		_ = rewards
//	}
package entropygo
