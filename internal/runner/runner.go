// Package runner keeps a user command running next to watch mode and
// restarts it after every successful rebuild.
package runner

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultGrace is how long Stop waits after the polite signal.
const DefaultGrace = 5 * time.Second

// ErrNoCommand is returned by New for an empty command line.
var ErrNoCommand = errors.New("runner: empty command")

// Options configure a Runner.
type Options struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	// Grace bounds the wait between the terminate signal and the kill.
	// Zero means DefaultGrace.
	Grace  time.Duration
	Logger *slog.Logger
}

// Runner owns at most one child process at a time.
type Runner struct {
	name string
	args []string
	opts Options

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New splits commandLine on whitespace. Quoting is not interpreted; wrap
// the command in `sh -c` when it needs a shell.
func New(commandLine string, opts Options) (*Runner, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{name: fields[0], args: fields[1:], opts: opts}, nil
}

// String returns the command line.
func (r *Runner) String() string {
	return strings.Join(append([]string{r.name}, r.args...), " ")
}

func (r *Runner) newCmd() *exec.Cmd {
	cmd := exec.Command(r.name, r.args...)
	cmd.Dir = r.opts.Dir
	cmd.Stdout = r.opts.Stdout
	cmd.Stderr = r.opts.Stderr
	// The child never reads the terminal; watch mode owns it.
	cmd.Stdin = nil
	return cmd
}

// Start launches the command. It must not already be running.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.newCmd()
	configure(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan struct{})
	r.cmd, r.done = cmd, done
	r.opts.Logger.Debug("started command", "command", r.String(), "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		r.opts.Logger.Debug("command exited", "command", r.String(), "err", err)
		close(done)
	}()
	return nil
}

// Stop terminates the running command and waits for it to exit. Stopping an
// idle runner is a no-op.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || exited(r.done) {
		return nil
	}
	terminate(r.cmd)
	select {
	case <-r.done:
	case <-time.After(r.opts.Grace):
		r.opts.Logger.Warn("command ignored the terminate signal, killing it", "command", r.String())
		kill(r.cmd)
		<-r.done
	}
	return nil
}

// Restart stops the current process, if any, and starts a new one.
func (r *Runner) Restart() error {
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Start()
}

// Wait blocks until the current process exits.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a started process has not exited yet.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil && !exited(r.done)
}

func exited(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
