package reload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	glog "github.com/spcent/autoreload/log"
)

// Reloader performs the reload once a restart is detected.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ScrollRestorer is implemented by reloaders that can keep the scroll
// position across the reload. The poller enables it right before Reload.
type ScrollRestorer interface {
	EnableScrollRestoration()
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context) error

func (f ReloaderFunc) Reload(ctx context.Context) error { return f(ctx) }

// ExitReloader does nothing on reload; Run returning is the whole effect.
type ExitReloader struct{}

func (ExitReloader) Reload(context.Context) error { return nil }

// ErrEmptyCommand is returned by NewCommandReloader without a command.
var ErrEmptyCommand = errors.New("reload: empty command")

// CommandReloader runs a shell command when the server restarts.
type CommandReloader struct {
	command string
	dir     string
	env     []string
	stdout  io.Writer
	stderr  io.Writer

	// RESTORE_SCROLL=1 is exported to the command once scroll restoration is enabled.
	restoreScroll bool
}

// NewCommandReloader creates a reloader for command, run through the
// platform shell in dir.
func NewCommandReloader(command, dir string) (*CommandReloader, error) {
	if command == "" {
		return nil, ErrEmptyCommand
	}
	return &CommandReloader{
		command: command,
		dir:     dir,
		env:     os.Environ(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}, nil
}

// SetOutput redirects the command's stdout and stderr.
func (r *CommandReloader) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// SetEnv adds an environment variable for the command.
func (r *CommandReloader) SetEnv(key, value string) {
	r.env = append(r.env, fmt.Sprintf("%s=%s", key, value))
}

func (r *CommandReloader) EnableScrollRestoration() {
	r.restoreScroll = true
}

// Reload runs the command and waits for it. It logs through the logger
// carried by ctx, if any.
func (r *CommandReloader) Reload(ctx context.Context) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", r.command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", r.command)
	}
	cmd.Dir = r.dir
	cmd.Env = r.env
	if r.restoreScroll {
		cmd.Env = append(cmd.Env, "RESTORE_SCROLL=1")
	}
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	glog.LoggerFromContext(ctx).InfoCtx(ctx, "running reload command", glog.Fields{
		"command":        r.command,
		"restore_scroll": r.restoreScroll,
	})
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %q: %w", r.command, err)
	}
	return nil
}
