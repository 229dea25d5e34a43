// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package shell

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Recorder is a scripted Runner used by tests. Every invocation is recorded;
// responses are chosen by the first rule whose prefix matches the command
// line. Unmatched commands succeed with empty output.
type Recorder struct {
	mu    sync.Mutex
	calls []Cmd
	rules []rule
	// Paths maps executable names to LookPath results. Missing names fail.
	Paths map[string]string
}

type rule struct {
	prefix string
	fn     func(c Cmd) ([]byte, error)
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{Paths: map[string]string{}}
}

// On scripts a fixed stdout and error for commands starting with prefix.
func (r *Recorder) On(prefix, stdout string, err error) *Recorder {
	return r.OnFunc(prefix, func(Cmd) ([]byte, error) { return []byte(stdout), err })
}

// OnFunc scripts a dynamic response for commands starting with prefix.
func (r *Recorder) OnFunc(prefix string, fn func(c Cmd) ([]byte, error)) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{prefix: prefix, fn: fn})
	return r
}

// Provide marks name as present on PATH.
func (r *Recorder) Provide(names ...string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.Paths[n] = "/usr/bin/" + n
	}
	return r
}

func (r *Recorder) respond(c Cmd) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	rules := append([]rule(nil), r.rules...)
	r.mu.Unlock()

	line := c.String()
	for _, ru := range rules {
		if strings.HasPrefix(line, ru.prefix) {
			return ru.fn(c)
		}
	}
	return nil, nil
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, c Cmd) error {
	out, err := r.respond(c)
	if c.Stdout != nil && len(out) > 0 {
		if _, werr := c.Stdout.Write(out); werr != nil {
			return werr
		}
	}
	return err
}

// Output implements Runner.
func (r *Recorder) Output(_ context.Context, c Cmd) ([]byte, error) {
	return r.respond(c)
}

// LookPath implements Runner.
func (r *Recorder) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Calls returns the recorded command lines in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

// Commands returns the recorded commands in order.
func (r *Recorder) Commands() []Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cmd(nil), r.calls...)
}

// Called reports whether any recorded command line starts with prefix.
func (r *Recorder) Called(prefix string) bool {
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// ReadStdin drains c.Stdin, returning an empty string when unset.
func ReadStdin(c Cmd) string {
	if c.Stdin == nil {
		return ""
	}
	b, _ := io.ReadAll(c.Stdin)
	return string(b)
}

// ExitStatus is a scripted failure carrying a process exit code.
type ExitStatus int

func (e ExitStatus) Error() string  { return fmt.Sprintf("exit status %d", int(e)) }
func (e ExitStatus) ExitCode() int { return int(e) }
