// Package reload detects server restarts by polling a health check token and
// triggers a reload when the token changes between two observations.
package reload

import (
	"context"
	"errors"
	"fmt"
	"time"

	glog "github.com/spcent/autoreload/log"
)

// DefaultInterval is the fixed delay before every poll cycle.
const DefaultInterval = 1000 * time.Millisecond

// ErrReload wraps errors returned by the Reloader.
var ErrReload = errors.New("reload failed")

// Poller runs poll cycles one after another until a restart is detected.
type Poller struct {
	fetcher   Fetcher
	reloader  Reloader
	scheduler Scheduler
	interval  time.Duration
	logger    glog.StructuredLogger
	state     *State
}

// Option configures a Poller.
type Option func(*Poller)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(p *Poller) {
		if s != nil {
			p.scheduler = s
		}
	}
}

// WithLogger sets the logger used for cycle diagnostics.
func WithLogger(l glog.StructuredLogger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithState lets the caller own the previous-token slot.
func WithState(s *State) Option {
	return func(p *Poller) {
		if s != nil {
			p.state = s
		}
	}
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New creates a Poller. fetcher and reloader must not be nil.
func New(fetcher Fetcher, reloader Reloader, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   fetcher,
		reloader:  reloader,
		scheduler: RealScheduler(),
		interval:  DefaultInterval,
		logger:    glog.NewNoop(),
		state:     &State{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State exposes the poller's state for inspection.
func (p *Poller) State() *State { return p.state }

// Cycle runs one poll cycle and reports whether a restart was detected.
// When it returns true the reloader has already been invoked; its error,
// if any, is returned as well. If ctx is done once the fetch returns, the
// result is discarded and ctx.Err() is returned.
func (p *Poller) Cycle(ctx context.Context) (bool, error) {
	token, err := p.fetcher.Fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// cancelled mid-cycle: leave the state untouched and never reload
		return false, ctxErr
	}
	if err != nil {
		p.logger.ErrorCtx(ctx, "health check request failed", glog.Fields{"error": err})
		token = ""
	}

	previous := p.state.Previous()
	if !p.state.observe(token) {
		if token != "" && previous == "" {
			p.logger.DebugCtx(ctx, "armed", glog.Fields{"token": token})
		}
		return false, nil
	}

	p.logger.InfoCtx(ctx, "server restart detected", glog.Fields{
		"previous": previous,
		"current":  token,
	})
	if sr, ok := p.reloader.(ScrollRestorer); ok {
		sr.EnableScrollRestoration()
	}
	if err := p.reloader.Reload(glog.WithLogger(ctx, p.logger)); err != nil {
		return true, fmt.Errorf("%w: %v", ErrReload, err)
	}
	return true, nil
}

// Run waits one interval, runs a cycle, and repeats until a restart is
// detected or ctx is done. It returns nil after a successful reload, the
// wrapped reloader error after a failed one, and ctx.Err() on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.scheduler.After(p.interval):
		}

		reloaded, err := p.Cycle(ctx)
		if reloaded || err != nil {
			return err
		}
	}
}
