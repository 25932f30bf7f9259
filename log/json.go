package glog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Config configures the loggers in this package.
type Config struct {
	// Output destination (defaults to os.Stderr)
	Output io.Writer
	// Minimum log level (defaults to DEBUG, the zero value)
	Level Level
	// Default fields to include in every log entry
	Fields Fields
	// Now overrides the entry timestamp source; used by tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Fields == nil {
		c.Fields = make(Fields)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// JSONLogger implements StructuredLogger with one JSON object per line.
type JSONLogger struct {
	mu     *sync.Mutex
	cfg    Config
	fields Fields
}

// NewJSONLogger creates a new JSONLogger with the given configuration.
func NewJSONLogger(cfg Config) *JSONLogger {
	cfg = cfg.withDefaults()
	return &JSONLogger{mu: &sync.Mutex{}, cfg: cfg, fields: cfg.Fields}
}

// WithFields returns a new logger with additional fields. The copy shares
// the output lock so lines from parent and child never interleave.
func (l *JSONLogger) WithFields(fields Fields) StructuredLogger {
	return &JSONLogger{mu: l.mu, cfg: l.cfg, fields: mergeFields(l.fields, fields)}
}

func (l *JSONLogger) Debug(msg string, fields Fields) { l.log(context.Background(), DEBUG, msg, fields) }
func (l *JSONLogger) Info(msg string, fields Fields)  { l.log(context.Background(), INFO, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields Fields)  { l.log(context.Background(), WARNING, msg, fields) }
func (l *JSONLogger) Error(msg string, fields Fields) { l.log(context.Background(), ERROR, msg, fields) }

func (l *JSONLogger) DebugCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, DEBUG, msg, fields)
}

func (l *JSONLogger) InfoCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, INFO, msg, fields)
}

func (l *JSONLogger) WarnCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, WARNING, msg, fields)
}

func (l *JSONLogger) ErrorCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, ERROR, msg, fields)
}

func (l *JSONLogger) log(ctx context.Context, level Level, msg string, fields Fields) {
	if level < l.cfg.Level {
		return
	}

	entry := make(map[string]any, len(l.fields)+len(fields)+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["time"] = l.cfg.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		entry["trace_id"] = traceID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(`{"level":"ERROR","msg":"failed to marshal log entry"}`)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.cfg.Output.Write(data)
}

// Start implements Lifecycle (no-op).
func (l *JSONLogger) Start(ctx context.Context) error {
	return nil
}

// Stop implements Lifecycle and syncs the output if it supports it.
func (l *JSONLogger) Stop(ctx context.Context) error {
	if syncer, ok := l.cfg.Output.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}
