package logger

import (
	"context"
)

// Logger is the structured logger used by the stores, the repositories and the CLI.
// Log methods take a message followed by key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds the key-value pairs to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger carrying the trace and span ids of the
	// span active in ctx, if any.
	WithContext(ctx context.Context) Logger
}
