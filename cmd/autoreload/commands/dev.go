package commands

import (
	"context"
	"strings"

	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
	"github.com/spcent/autoreload/cmd/autoreload/internal/runner"
	"github.com/spcent/autoreload/cmd/autoreload/internal/watcher"
	"github.com/spcent/autoreload/config"
	glog "github.com/spcent/autoreload/log"
)

// DevEnv is set to "1" for the application started by dev, so it can turn
// on the reload script (frontend.Scripts) only in development.
const DevEnv = "AUTORELOAD_DEV"

// DevCmd runs the user's application and restarts it whenever a watched file
// changes. Each restart gives the application a new health token, so pages
// carrying the reload script refresh on their own.
type DevCmd struct{}

func (c *DevCmd) Name() string {
	return "dev"
}

func (c *DevCmd) Short() string {
	return "Run an application and restart it on file changes"
}

func (c *DevCmd) Run(ctx *Context, args []string) error {
	cfg := ctx.Config.Dev
	watch := strings.Join(cfg.Watch, ",")
	exclude := strings.Join(cfg.Exclude, ",")

	fs := ctx.newFlagSet("dev")
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Project directory")
	fs.StringVar(&cfg.Run, "run", cfg.Run, "Command that starts the application")
	fs.StringVar(&watch, "watch", watch, "Comma-separated glob patterns to watch")
	fs.StringVar(&exclude, "exclude", exclude, "Comma-separated glob patterns to ignore")
	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "Quiet period before restarting")
	if err := fs.Parse(args); err != nil {
		return output.Wrap(output.ExitUsage, "invalid flags", err)
	}
	cfg.Watch = config.SplitList(watch)
	cfg.Exclude = config.SplitList(exclude)

	if cfg.Run == "" {
		return output.Wrap(output.ExitUsage, "--run is required", nil)
	}
	if cfg.Debounce < 0 {
		return output.Wrap(output.ExitUsage, "--debounce must not be negative", nil)
	}
	dir, err := resolveDir(cfg.Dir)
	if err != nil {
		return output.Wrap(output.ExitUsage, "invalid --dir", err)
	}
	cfg.Dir = dir

	app := runner.New(cfg.Dir, cfg.Run, ctx.Logger)
	app.SetOutput(ctx.Out.Err(), ctx.Out.Err())
	app.SetEnv(DevEnv, "1")

	w, err := watcher.New(cfg.Dir, cfg.Watch, cfg.Exclude, cfg.Debounce)
	if err != nil {
		return output.Wrap(output.ExitFailure, "watch files", err)
	}
	defer w.Close()

	sigCtx, cancel := ctx.SignalContext()
	defer cancel()

	return develop(sigCtx, app, w, ctx.Logger, ctx.Out)
}

// develop starts app and restarts it on every change until ctx is done.
func develop(ctx context.Context, app *runner.AppRunner, w *watcher.Watcher, logger glog.StructuredLogger, out *output.Formatter) error {
	if err := app.Start(ctx); err != nil {
		return output.Wrap(output.ExitFailure, "start application", err)
	}
	out.Event("dev.started", nil)

	for {
		select {
		case <-ctx.Done():
			if err := app.Stop(); err != nil {
				return output.Wrap(output.ExitFailure, "stop application", err)
			}
			out.Event("dev.stopped", map[string]any{"restarts": app.Restarts()})
			return nil

		case change, ok := <-w.Events():
			if !ok {
				return app.Stop()
			}
			out.Event("change.detected", map[string]any{"path": change.Path, "count": change.Count})
			if err := app.Restart(ctx); err != nil {
				logger.Error("restart failed", glog.Fields{"error": err})
				continue
			}
			out.Event("app.restarted", map[string]any{"restarts": app.Restarts()})

		case err := <-w.Errors():
			logger.Warn("watcher error", glog.Fields{"error": err})
		}
	}
}
