package glog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey int

const (
	traceIDKey contextKey = iota
	loggerKey
)

// WithTraceID adds a trace ID to the context.
// This trace ID will be automatically included in all Context-aware log methods.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts the trace ID from context.
// Returns an empty string if no trace ID is present.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// NewTraceID returns a random 16 hex character identifier.
func NewTraceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b[:])
}

// WithLogger attaches a logger instance to the context.
func WithLogger(ctx context.Context, logger StructuredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context.
// Returns a no-op logger if none is present.
func LoggerFromContext(ctx context.Context) StructuredLogger {
	if logger, ok := ctx.Value(loggerKey).(StructuredLogger); ok {
		return logger
	}
	return NewNoop()
}
