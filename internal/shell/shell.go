// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package shell wraps external process execution behind a small Runner
// interface so orchestration code can be exercised without a real host.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/toeirei/panelctl/internal/logging"
)

// Cmd describes one external process invocation.
type Cmd struct {
	Name   string
	Args   []string
	Env    []string // extra KEY=VALUE entries appended to the parent environment
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Command builds a Cmd for name with args.
func Command(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// String renders the command line the way an operator would type it.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands on the host.
type Runner interface {
	// Run executes c, streaming its output to c.Stdout/c.Stderr.
	Run(ctx context.Context, c Cmd) error
	// Output executes c and returns its standard output.
	Output(ctx context.Context, c Cmd) ([]byte, error)
	// LookPath reports the absolute path of an executable.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec. Zero value streams to the process
// standard streams.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = firstReader(c.Stdin, r.Stdin)
	return cmd
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Cmd) error {
	cmd := r.command(ctx, c)
	cmd.Stdout = firstWriter(c.Stdout, r.Stdout, os.Stdout)
	cmd.Stderr = firstWriter(c.Stderr, r.Stderr, os.Stderr)
	logging.Debugf("exec: %s", c.String())
	if err := cmd.Run(); err != nil {
		return &Error{Cmd: c.String(), Err: err}
	}
	return nil
}

// Output implements Runner. Standard error is captured and attached to the
// returned error.
func (r ExecRunner) Output(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := r.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, c.Stderr)
	}
	logging.Debugf("exec: %s", c.String())
	out, err := cmd.Output()
	if err != nil {
		return out, &Error{Cmd: c.String(), Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return out, nil
}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Error is returned when a command fails to start or exits nonzero.
type Error struct {
	Cmd    string
	Err    error
	Stderr string
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode extracts the process exit status from err. It returns 0 for a nil
// error and -1 when err carries no exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

// AttemptResult records the outcome of a best-effort command whose failure
// the caller discards.
type AttemptResult struct {
	Cmd string
	Err error
}

// Ignored reports whether the attempt failed and the failure was discarded.
func (a AttemptResult) Ignored() bool { return a.Err != nil }

// Attempt runs c and never fails the caller; the error is logged at debug
// level and handed back for inspection.
func Attempt(ctx context.Context, r Runner, c Cmd) AttemptResult {
	if c.Stdout == nil {
		c.Stdout = io.Discard
	}
	if c.Stderr == nil {
		c.Stderr = io.Discard
	}
	err := r.Run(ctx, c)
	if err != nil {
		logging.Debugf("ignored failure of %q: %v", c.String(), err)
	}
	return AttemptResult{Cmd: c.String(), Err: err}
}

// Has reports whether name resolves on PATH.
func Has(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}

func firstReader(rs ...io.Reader) io.Reader {
	for _, r := range rs {
		if r != nil {
			return r
		}
	}
	return nil
}

func firstWriter(ws ...io.Writer) io.Writer {
	for _, w := range ws {
		if w != nil {
			return w
		}
	}
	return nil
}
