// Package entropy converts density estimates into entropy-style exploration
// signals for reinforcement-learning reward shaping.
package entropy
