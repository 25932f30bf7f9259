package commands

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
	"github.com/spcent/autoreload/config"
	"github.com/spcent/autoreload/frontend"
	"github.com/spcent/autoreload/health"
	glog "github.com/spcent/autoreload/log"
	"github.com/spcent/autoreload/middleware"
)

// ServeCmd runs a small server that exposes the health check endpoint and a
// demo page with the reload script injected.
type ServeCmd struct{}

func (c *ServeCmd) Name() string {
	return "serve"
}

func (c *ServeCmd) Short() string {
	return "Serve a page that reloads itself when this server restarts"
}

func (c *ServeCmd) Run(ctx *Context, args []string) error {
	cfg := ctx.Config.Serve

	fs := ctx.newFlagSet("serve")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Static directory served under /static/")
	fs.BoolVar(&cfg.Reload, "reload", cfg.Reload, "Inject the reload script into HTML pages")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Token source: nonce or build")
	if err := fs.Parse(args); err != nil {
		return output.Wrap(output.ExitUsage, "invalid flags", err)
	}

	merged := ctx.Config
	merged.Serve = cfg
	if err := merged.Validate(config.SectionServe); err != nil {
		return output.Wrap(output.ExitUsage, "invalid serve options", err)
	}
	if cfg.Dir != "" {
		dir, err := resolveDir(cfg.Dir)
		if err != nil {
			return output.Wrap(output.ExitUsage, "invalid --dir", err)
		}
		cfg.Dir = dir
	}

	src, err := tokenSource(cfg.Token)
	if err != nil {
		return output.Wrap(output.ExitUsage, "invalid token source", err)
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return output.Wrap(output.ExitFailure, "listen", err)
	}

	sigCtx, cancel := ctx.SignalContext()
	defer cancel()

	return serve(sigCtx, listener, cfg, src, ctx.Logger, ctx.Out)
}

func tokenSource(kind string) (health.TokenSource, error) {
	switch kind {
	case "", "nonce":
		return health.NonceSource{}, nil
	case "build":
		src, err := health.NewBuildSource(health.GetBuildInfo())
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("unknown token source %q", kind)
}

func serve(ctx context.Context, l net.Listener, cfg config.ServeConfig, src health.TokenSource, logger glog.StructuredLogger, out *output.Formatter) error {
	srv := &http.Server{
		Handler:           newServeHandler(cfg, src, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	out.Event("server.started", map[string]any{
		"addr":   l.Addr().String(),
		"token":  src.Token(),
		"reload": cfg.Reload,
	})
	logger.Info("server listening", glog.Fields{"addr": l.Addr().String()})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return output.Wrap(output.ExitFailure, "serve", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return output.Wrap(output.ExitFailure, "shutdown", err)
	}
	out.Event("server.stopped", nil)
	return nil
}

var demoPage = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>autoreload</title></head>
<body>
<h1>autoreload</h1>
<p>Server token <code>{{.Token}}</code>, version {{.Build.Version}} ({{.Build.Commit}}).</p>
<p>Restart the server and this page reloads by itself.</p>
</body>
</html>
`))

func newServeHandler(cfg config.ServeConfig, src health.TokenSource, logger glog.StructuredLogger) http.Handler {
	inject := frontend.Inject(cfg.Reload)

	mux := http.NewServeMux()
	health.Register(mux, src, logger)
	mux.Handle(frontend.ScriptPath, frontend.Handler())
	if cfg.Dir != "" {
		mux.Handle("/static/", inject(http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Dir)))))
	}
	mux.Handle("/", inject(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		data := struct {
			Token string
			Build health.BuildInfo
		}{src.Token(), health.GetBuildInfo()}
		if err := demoPage.Execute(w, data); err != nil {
			logger.ErrorCtx(r.Context(), "render page", glog.Fields{"error": err})
		}
	})))

	return middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(logger, health.Path, frontend.ScriptPath),
		middleware.Recovery(logger),
	).Apply(mux)
}
