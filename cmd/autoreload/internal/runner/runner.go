// Package runner keeps one instance of the user's application running and
// restarts it on demand.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	glog "github.com/spcent/autoreload/log"
)

// ErrAlreadyRunning is returned by Start while a process is alive.
var ErrAlreadyRunning = errors.New("application already running")

// AppRunner manages the user application lifecycle
type AppRunner struct {
	dir         string
	command     string
	env         []string
	stopTimeout time.Duration
	stdout      io.Writer
	stderr      io.Writer
	logger      glog.StructuredLogger

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	restart int
}

// New creates a runner for command (run through the platform shell) in dir.
func New(dir, command string, logger glog.StructuredLogger) *AppRunner {
	if logger == nil {
		logger = glog.NewNoop()
	}
	return &AppRunner{
		dir:         dir,
		command:     command,
		env:         os.Environ(),
		stopTimeout: 5 * time.Second,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      logger.WithFields(glog.Fields{"component": "runner"}),
	}
}

// SetEnv adds environment variables
func (r *AppRunner) SetEnv(key, value string) {
	r.env = append(r.env, fmt.Sprintf("%s=%s", key, value))
}

// SetOutput redirects the application's stdout and stderr.
func (r *AppRunner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// SetStopTimeout sets how long Stop waits before killing the process.
func (r *AppRunner) SetStopTimeout(d time.Duration) {
	if d > 0 {
		r.stopTimeout = d
	}
}

// IsRunning returns whether the app is currently running
func (r *AppRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// Restarts reports how many times Restart started a new process.
func (r *AppRunner) Restarts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restart
}

// Start starts the application
func (r *AppRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx)
}

func (r *AppRunner) startLocked(ctx context.Context) error {
	if r.cmd != nil {
		return ErrAlreadyRunning
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", r.command)
	} else {
		cmd = exec.Command("sh", "-c", r.command)
	}
	cmd.Dir = r.dir
	cmd.Env = r.env
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		r.logger.ErrorCtx(ctx, "application failed to start", glog.Fields{"error": err, "command": r.command})
		return fmt.Errorf("failed to start: %w", err)
	}

	exited := make(chan struct{})
	r.cmd = cmd
	r.exited = exited

	var streams sync.WaitGroup
	streams.Add(2)
	go r.streamOutput(&streams, stdout, r.stdout)
	go r.streamOutput(&streams, stderr, r.stderr)

	go func() {
		streams.Wait()
		err := cmd.Wait()
		// close before locking: stopLocked waits on exited while holding mu
		close(exited)

		r.mu.Lock()
		if r.cmd == cmd {
			r.cmd = nil
		}
		r.mu.Unlock()

		fields := glog.Fields{"pid": cmd.Process.Pid}
		if err != nil {
			fields["error"] = err
			r.logger.Warn("application exited", fields)
		} else {
			r.logger.Info("application stopped", fields)
		}
	}()

	r.logger.InfoCtx(ctx, "application running", glog.Fields{"pid": cmd.Process.Pid, "command": r.command})
	return nil
}

// Stop stops the application gracefully, killing it after the stop timeout.
func (r *AppRunner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *AppRunner) stopLocked() error {
	if r.cmd == nil {
		return nil
	}
	cmd, exited := r.cmd, r.exited

	if err := terminate(cmd); err != nil {
		// Process might already be dead
		r.logger.Debug("terminate failed", glog.Fields{"error": err})
	}

	select {
	case <-exited:
	case <-time.After(r.stopTimeout):
		if err := kill(cmd); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
		<-exited
	}
	r.cmd = nil
	return nil
}

// Restart stops the running process, if any, and starts a new one.
func (r *AppRunner) Restart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.stopLocked(); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	if err := r.startLocked(ctx); err != nil {
		return err
	}
	r.restart++
	return nil
}

func (r *AppRunner) streamOutput(wg *sync.WaitGroup, reader io.Reader, dst io.Writer) {
	defer wg.Done()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(dst, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		r.logger.Debug("output stream closed", glog.Fields{"error": err})
	}
}
