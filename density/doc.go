// Package density derives visitation density estimates from online k-means
// occupancy statistics.
//
// Discrete mode attributes each query point the probability mass of its
// nearest centroid. Smoothed mode blends the masses of the m nearest
// centroids with an inverse-distance kernel, approximating a continuous
// density that decays away from visited regions.
package density
