// Package logger provides the structured logging contract used across the service.
package logger

import (
	"context"
)

// Logger is the structured logger handed to every component.
// Log methods take a message followed by alternating key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds the given key-value pairs to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger tagged with the request ID found in ctx, if any.
	WithContext(ctx context.Context) Logger
}
