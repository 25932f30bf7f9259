package commands

import (
	"context"
	"errors"

	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
	"github.com/spcent/autoreload/config"
	glog "github.com/spcent/autoreload/log"
	httpx "github.com/spcent/autoreload/net/http"
	"github.com/spcent/autoreload/reload"
)

// HealthURLEnv tells the --exec command which endpoint reported the restart.
const HealthURLEnv = "AUTORELOAD_HEALTH_URL"

// WatchCmd polls a server's health check and runs a command once it restarts.
type WatchCmd struct {
	// scheduler overrides the poll timer; tests use a manual one.
	scheduler reload.Scheduler
}

func (c *WatchCmd) Name() string {
	return "watch"
}

func (c *WatchCmd) Short() string {
	return "Poll a server and run a command when it restarts"
}

func (c *WatchCmd) Run(ctx *Context, args []string) error {
	cfg := ctx.Config.Watch

	fs := ctx.newFlagSet("watch")
	fs.StringVar(&cfg.URL, "url", cfg.URL, "Base URL of the server to watch")
	fs.StringVar(&cfg.Exec, "exec", cfg.Exec, "Command to run when a restart is detected")
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Working directory for --exec")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout (0 for none)")
	if err := fs.Parse(args); err != nil {
		return output.Wrap(output.ExitUsage, "invalid flags", err)
	}

	merged := ctx.Config
	merged.Watch = cfg
	if err := merged.Validate(config.SectionWatch); err != nil {
		return output.Wrap(output.ExitUsage, "invalid watch options", err)
	}

	client := httpx.New(
		httpx.WithTimeout(cfg.Timeout),
		httpx.WithMiddleware(httpx.Logging(ctx.Logger)),
	)
	fetcher, err := reload.NewHTTPFetcher(cfg.URL, client, ctx.Logger)
	if err != nil {
		return output.Wrap(output.ExitUsage, "invalid --url", err)
	}

	var reloader reload.Reloader = reload.ExitReloader{}
	if cfg.Exec != "" {
		dir, err := resolveDir(cfg.Dir)
		if err != nil {
			return output.Wrap(output.ExitUsage, "invalid --dir", err)
		}
		cr, err := reload.NewCommandReloader(cfg.Exec, dir)
		if err != nil {
			return output.Wrap(output.ExitUsage, "invalid --exec", err)
		}
		cr.SetOutput(ctx.Out.Err(), ctx.Out.Err())
		cr.SetEnv(HealthURLEnv, fetcher.URL())
		reloader = cr
	}

	state := &reload.State{}
	opts := []reload.Option{
		reload.WithLogger(ctx.Logger.WithFields(glog.Fields{"component": "poller", "url": fetcher.URL()})),
		reload.WithState(state),
	}
	if c.scheduler != nil {
		opts = append(opts, reload.WithScheduler(c.scheduler))
	}
	poller := reload.New(fetcher, &announcingReloader{next: reloader, state: state, out: ctx.Out}, opts...)

	sigCtx, cancel := ctx.SignalContext()
	defer cancel()

	ctx.Out.Event("watch.started", map[string]any{"url": fetcher.URL()})
	err = poller.Run(sigCtx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), sigCtx.Err() != nil:
		// an interrupt that lands while --exec runs is still a clean stop
		ctx.Out.Event("watch.stopped", map[string]any{"phase": state.Phase().String()})
		return nil
	default:
		return output.Wrap(output.ExitFailure, "reload command failed", err)
	}
}

// announcingReloader reports the restart before delegating to next.
type announcingReloader struct {
	next  reload.Reloader
	state *reload.State
	out   *output.Formatter
}

func (r *announcingReloader) EnableScrollRestoration() {
	if sr, ok := r.next.(reload.ScrollRestorer); ok {
		sr.EnableScrollRestoration()
	}
}

func (r *announcingReloader) Reload(ctx context.Context) error {
	r.out.Event("restart.detected", map[string]any{"token": r.state.Previous()})
	return r.next.Reload(ctx)
}
