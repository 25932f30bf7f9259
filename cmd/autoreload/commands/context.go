package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
	"github.com/spcent/autoreload/config"
	glog "github.com/spcent/autoreload/log"
)

// Context carries shared CLI dependencies and configuration.
type Context struct {
	Out    *output.Formatter
	Config config.Config
	Logger glog.StructuredLogger

	// signals builds the context cancelled on SIGINT/SIGTERM; tests swap it.
	signals func() (context.Context, context.CancelFunc)
}

func newContext(flags globalFlags, stdout, stderr io.Writer) (*Context, error) {
	out := output.NewFormatter()
	out.SetFormat(flags.format)
	out.SetQuiet(flags.quiet)
	out.SetWriters(stdout, stderr)

	if flags.envFile != "" {
		if err := config.LoadEnvFile(flags.envFile, false); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, output.Wrap(output.ExitFailure, "load env file", err)
		}
	}

	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, output.Wrap(output.ExitUsage, "load config", err)
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	// sections other than log are checked by the subcommands that use them,
	// after their own flags are applied
	if err := cfg.Validate(config.SectionLog); err != nil {
		return nil, output.Wrap(output.ExitUsage, "invalid config", err)
	}

	level, err := glog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, output.Wrap(output.ExitUsage, "invalid log level", err)
	}
	logger, err := glog.New(cfg.Log.Format, glog.Config{
		Output: stderr,
		Level:  level,
		Fields: glog.Fields{"app": "autoreload"},
	})
	if err != nil {
		return nil, output.Wrap(output.ExitUsage, "invalid log format", err)
	}

	return &Context{
		Out:    out,
		Config: cfg,
		Logger: logger,
		signals: func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		},
	}, nil
}

// SignalContext returns a context cancelled on interrupt.
func (c *Context) SignalContext() (context.Context, context.CancelFunc) {
	if c.signals == nil {
		return context.WithCancel(context.Background())
	}
	return c.signals()
}

// Close releases logger resources.
func (c *Context) Close() {
	if lc, ok := c.Logger.(glog.Lifecycle); ok {
		_ = lc.Stop(context.Background())
	}
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func (c *Context) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Out.Err())
	return fs
}

// resolveDir converts a directory flag to an absolute path and verifies it exists.
func resolveDir(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid directory: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", absDir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", absDir)
	}

	return absDir, nil
}
