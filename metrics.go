package entropygo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordUpdate is called after each batch update. points is the batch
	// size, skipped reports a degenerate-batch no-op, err is nil on
	// success.
	RecordUpdate(points int, skipped bool, duration time.Duration, err error)

	// RecordQuery is called after each read-only density or reward query.
	RecordQuery(kind string, points int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save or load.
	RecordSnapshot(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpdate(int, bool, time.Duration, error)  {}
func (NoopMetricsCollector) RecordQuery(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpdateCount      atomic.Int64
	UpdateSkipped    atomic.Int64
	UpdateErrors     atomic.Int64
	UpdatePoints     atomic.Int64
	UpdateTotalNanos atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryPoints      atomic.Int64
	QueryTotalNanos  atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotErrors   atomic.Int64
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(points int, skipped bool, duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdatePoints.Add(int64(points))
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	if skipped {
		b.UpdateSkipped.Add(1)
	}
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(kind string, points int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryPoints.Add(int64(points))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpdateCount:    b.UpdateCount.Load(),
		UpdateSkipped:  b.UpdateSkipped.Load(),
		UpdateErrors:   b.UpdateErrors.Load(),
		UpdatePoints:   b.UpdatePoints.Load(),
		UpdateAvgNanos: avg(b.UpdateTotalNanos.Load(), b.UpdateCount.Load()),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryPoints:    b.QueryPoints.Load(),
		QueryAvgNanos:  avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		SnapshotCount:  b.SnapshotCount.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpdateCount    int64
	UpdateSkipped  int64
	UpdateErrors   int64
	UpdatePoints   int64
	UpdateAvgNanos int64
	QueryCount     int64
	QueryErrors    int64
	QueryPoints    int64
	QueryAvgNanos  int64
	SnapshotCount  int64
	SnapshotErrors int64
}
