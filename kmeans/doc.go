// Package kmeans implements an online k-means encoder over streaming batches
// of states.
//
// The encoder owns a bounded set of centroids and per-centroid visit counts.
// Each batch is assigned to the nearest centroids and merged into the running
// exact means without replaying history. Seeding supports uniform random and
// greedy farthest-point strategies.
package kmeans
