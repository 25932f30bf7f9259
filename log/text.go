package glog

import (
	"context"
	"fmt"
	"sync"
)

// TextLogger writes glog-style lines: "I1017 15:04:05.000000 msg k=v".
type TextLogger struct {
	mu     *sync.Mutex
	cfg    Config
	fields Fields
}

// NewTextLogger creates a human readable logger.
func NewTextLogger(cfg Config) *TextLogger {
	cfg = cfg.withDefaults()
	return &TextLogger{mu: &sync.Mutex{}, cfg: cfg, fields: cfg.Fields}
}

func (l *TextLogger) WithFields(fields Fields) StructuredLogger {
	return &TextLogger{mu: l.mu, cfg: l.cfg, fields: mergeFields(l.fields, fields)}
}

func (l *TextLogger) Debug(msg string, fields Fields) { l.log(context.Background(), DEBUG, msg, fields) }
func (l *TextLogger) Info(msg string, fields Fields)  { l.log(context.Background(), INFO, msg, fields) }
func (l *TextLogger) Warn(msg string, fields Fields)  { l.log(context.Background(), WARNING, msg, fields) }
func (l *TextLogger) Error(msg string, fields Fields) { l.log(context.Background(), ERROR, msg, fields) }

func (l *TextLogger) DebugCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, DEBUG, msg, fields)
}

func (l *TextLogger) InfoCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, INFO, msg, fields)
}

func (l *TextLogger) WarnCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, WARNING, msg, fields)
}

func (l *TextLogger) ErrorCtx(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, ERROR, msg, fields)
}

func (l *TextLogger) log(ctx context.Context, level Level, msg string, fields Fields) {
	if level < l.cfg.Level {
		return
	}

	combined := mergeFields(l.fields, fields)
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		combined["trace_id"] = traceID
	}

	line := fmt.Sprintf("%c%s %s", level.String()[0], l.cfg.Now().Format("0102 15:04:05.000000"), msg)
	if formatted := formatFields(combined); formatted != "" {
		line += " " + formatted
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.cfg.Output, line)
}
