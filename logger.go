package entropygo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with estimator-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithEstimator tags the logger with an estimator's identity fields.
func (l *Logger) WithEstimator(id string, dim, k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("estimator", id, "dimension", dim, "k", k),
	}
}

// LogInit logs an initialization.
func (l *Logger) LogInit(ctx context.Context, points int, strategy string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "init failed",
			"points", points,
			"strategy", strategy,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "init completed",
			"points", points,
			"strategy", strategy,
		)
	}
}

// LogUpdate logs a batch update.
func (l *Logger) LogUpdate(ctx context.Context, points int, skipped bool, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "update failed",
			"points", points,
			"error", err,
		)
	case skipped:
		l.DebugContext(ctx, "update skipped degenerate batch",
			"points", points,
		)
	default:
		l.DebugContext(ctx, "update completed",
			"points", points,
		)
	}
}

// LogQuery logs a read-only density or reward query.
func (l *Logger) LogQuery(ctx context.Context, kind string, points int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"kind", kind,
			"points", points,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"kind", kind,
			"points", points,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"op", op,
		)
	}
}

// LogReset logs a reset.
func (l *Logger) LogReset(ctx context.Context) {
	l.InfoContext(ctx, "estimator reset")
}
