package glog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Level is the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
)

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the short upper-case name used in log output.
func (l Level) String() string {
	if l < DEBUG || l > ERROR {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a textual level ("debug", "info", "warn", "error") to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARNING, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Fields represents structured log fields to attach to a log entry.
type Fields map[string]any

// StructuredLogger defines the minimal logging interface used by the application.
//
// Implementations can wrap zap/logrus/zerolog/slog or any other logger.
// The logger should treat a nil Fields map the same as an empty one.
type StructuredLogger interface {
	WithFields(fields Fields) StructuredLogger

	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)

	// Context-aware logging methods that can extract trace IDs and other context values
	DebugCtx(ctx context.Context, msg string, fields Fields)
	InfoCtx(ctx context.Context, msg string, fields Fields)
	WarnCtx(ctx context.Context, msg string, fields Fields)
	ErrorCtx(ctx context.Context, msg string, fields Fields)
}

// Lifecycle allows a logger to participate in application start/stop hooks
// (e.g. to flush buffers). Methods are optional.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// New builds a logger for the given format ("json" or "text").
func New(format string, cfg Config) (StructuredLogger, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextLogger(cfg), nil
	case "json":
		return NewJSONLogger(cfg), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

type noopLogger struct{}

// NewNoop returns a logger that discards everything.
func NewNoop() StructuredLogger { return noopLogger{} }

func (n noopLogger) WithFields(Fields) StructuredLogger     { return n }
func (noopLogger) Debug(string, Fields)                     {}
func (noopLogger) Info(string, Fields)                      {}
func (noopLogger) Warn(string, Fields)                      {}
func (noopLogger) Error(string, Fields)                     {}
func (noopLogger) DebugCtx(context.Context, string, Fields) {}
func (noopLogger) InfoCtx(context.Context, string, Fields)  {}
func (noopLogger) WarnCtx(context.Context, string, Fields)  {}
func (noopLogger) ErrorCtx(context.Context, string, Fields) {}

func mergeFields(base, extra Fields) Fields {
	merged := make(Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}

	return strings.Join(parts, " ")
}
