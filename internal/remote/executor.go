// Package remote provides the command execution primitives every capability
// builds on.
//
// A Channel is the raw transport (an SSH session in production). An Executor
// wraps exactly one Channel and offers two call contracts:
//
//   - Run fails with *CommandError whenever the remote exit code is non-zero.
//     RunSensitive does the same but logs and reports a display string
//     instead of the command.
//   - Silent never fails on a non-zero exit code and returns the outcome for
//     the caller to interpret. Commands issued through Silent for checks must
//     be free of side effects.
//
// Both contracts return an error for transport failures.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Call kinds, used as metric labels.
const (
	KindRun    = "run"
	KindSilent = "silent"
)

// Channel executes a command line on the remote host.
// err is reserved for transport failures; a command that ran and exited
// non-zero is reported through exitCode.
type Channel interface {
	Exec(ctx context.Context, command string) (exitCode int, output string, err error)
}

// Runner is the contract capabilities are written against.
type Runner interface {
	// Run executes command and fails with *CommandError on non-zero exit.
	Run(ctx context.Context, command string) (Outcome, error)
	// RunSensitive is Run for commands that carry secrets. display stands
	// in for command in logs and errors.
	RunSensitive(ctx context.Context, command, display string) (Outcome, error)
	// Silent executes command and returns its outcome regardless of exit code.
	Silent(ctx context.Context, command string) (Outcome, error)
}

// Outcome is the result of one remote command.
type Outcome struct {
	ExitCode int
	Output   string
}

// OK reports whether the command exited with status zero.
func (o Outcome) OK() bool {
	return o.ExitCode == 0
}

// FirstLine returns the first line of the trimmed output.
func (o Outcome) FirstLine() string {
	out := strings.TrimSpace(o.Output)
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		return strings.TrimSpace(out[:i])
	}
	return out
}

// CommandObserver is notified after every remote call.
type CommandObserver interface {
	ObserveCommand(kind string, exitCode int, err error, elapsed time.Duration)
}

// Executor implements Runner over a single Channel.
type Executor struct {
	channel  Channel
	observer CommandObserver
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver registers an observer for every remote call.
func WithObserver(o CommandObserver) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

// NewExecutor wraps channel.
func NewExecutor(channel Channel, opts ...Option) *Executor {
	e := &Executor{channel: channel}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes command and fails with *CommandError on non-zero exit.
func (e *Executor) Run(ctx context.Context, command string) (Outcome, error) {
	return e.run(ctx, command, command)
}

// RunSensitive executes command like Run but never logs or reports it;
// display is used instead.
func (e *Executor) RunSensitive(ctx context.Context, command, display string) (Outcome, error) {
	return e.run(ctx, command, display)
}

func (e *Executor) run(ctx context.Context, command, display string) (Outcome, error) {
	out, err := e.exec(ctx, KindRun, command, display)
	if err != nil {
		return out, err
	}
	if !out.OK() {
		logr.FromContextOrDiscard(ctx).Info("remote command failed",
			"command", display, "exitCode", out.ExitCode, "output", strings.TrimSpace(out.Output))
		return out, &CommandError{Command: display, ExitCode: out.ExitCode, Output: out.Output}
	}
	return out, nil
}

// Silent executes command and returns its outcome regardless of exit code.
func (e *Executor) Silent(ctx context.Context, command string) (Outcome, error) {
	return e.exec(ctx, KindSilent, command, command)
}

func (e *Executor) exec(ctx context.Context, kind, command, display string) (Outcome, error) {
	start := time.Now()
	code, output, err := e.channel.Exec(ctx, command)
	elapsed := time.Since(start)

	if e.observer != nil {
		e.observer.ObserveCommand(kind, code, err, elapsed)
	}
	if err != nil {
		return Outcome{ExitCode: code, Output: output}, fmt.Errorf("failed to execute %q: %w", display, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("remote command",
		"kind", kind, "command", display, "exitCode", code, "elapsed", elapsed.Round(time.Millisecond))
	return Outcome{ExitCode: code, Output: output}, nil
}
