package reload

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	glog "github.com/spcent/autoreload/log"
)

func TestNewCommandReloaderEmpty(t *testing.T) {
	if _, err := NewCommandReloader("", "."); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestCommandReloader(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r, err := NewCommandReloader(`echo "reload $RESTORE_SCROLL $EXTRA"`, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var stdout bytes.Buffer
	r.SetOutput(&stdout, &stdout)
	r.SetEnv("EXTRA", "yes")
	r.EnableScrollRestoration()

	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "reload 1 yes" {
		t.Errorf("output = %q", got)
	}
}

func TestCommandReloaderLogsThroughContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r, err := NewCommandReloader("true", "")
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	logger := glog.NewTextLogger(glog.Config{Output: &logs})
	ctx := glog.WithLogger(context.Background(), logger)

	if err := r.Reload(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(logs.String(), "running reload command") {
		t.Errorf("expected the command to be logged, got %q", logs.String())
	}
}

func TestPollerPassesLoggerToReloader(t *testing.T) {
	var logs bytes.Buffer
	logger := glog.NewTextLogger(glog.Config{Output: &logs})

	var got glog.StructuredLogger
	reloader := ReloaderFunc(func(ctx context.Context) error {
		got = glog.LoggerFromContext(ctx)
		return nil
	})
	fetcher := &scriptedFetcher{responses: []response{ok("a"), ok("b")}}
	p := New(fetcher, reloader, WithLogger(logger))
	runCycles(t, p, 2)

	if got == nil {
		t.Fatal("reloader was not called")
	}
	got.Info("from reloader", nil)
	if !strings.Contains(logs.String(), "from reloader") {
		t.Errorf("reloader did not receive the poller's logger")
	}
}

func TestCommandReloaderFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r, err := NewCommandReloader("exit 3", "")
	if err != nil {
		t.Fatal(err)
	}
	r.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestExitReloader(t *testing.T) {
	var r Reloader = ExitReloader{}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(ScrollRestorer); ok {
		t.Error("ExitReloader has no scroll position to restore")
	}
}
