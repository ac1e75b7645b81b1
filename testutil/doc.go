// Package testutil provides deterministic data generators and brute-force
// reference computations for tests.
package testutil
