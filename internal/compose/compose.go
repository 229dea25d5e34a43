// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package compose drives the docker compose CLI for one deployment and
// inspects compose documents.
package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/toeirei/panelctl/internal/shell"
)

// ErrNotFound is returned when neither compose flavour is available.
var ErrNotFound = errors.New("docker compose is not installed")

// Detect returns the compose invocation prefix, preferring the docker CLI
// plugin over the standalone binary.
func Detect(ctx context.Context, r shell.Runner) ([]string, error) {
	if shell.Has(r, "docker") {
		c := shell.Command("docker", "compose", "version")
		c.Stdout, c.Stderr = io.Discard, io.Discard
		if err := r.Run(ctx, c); err == nil {
			return []string{"docker", "compose"}, nil
		}
	}
	if shell.Has(r, "docker-compose") {
		return []string{"docker-compose"}, nil
	}
	return nil, ErrNotFound
}

// Project is one compose deployment.
type Project struct {
	Runner     shell.Runner
	Bin        []string
	File       string
	EnvFile    string
	ProjectDir string
	Stdout     io.Writer
	Stderr     io.Writer
}

func (p *Project) cmd(args ...string) shell.Cmd {
	full := append([]string{}, p.Bin[1:]...)
	full = append(full, "-f", p.File, "--project-directory", p.ProjectDir)
	if p.EnvFile != "" {
		full = append(full, "--env-file", p.EnvFile)
	}
	full = append(full, args...)
	c := shell.Command(p.Bin[0], full...)
	c.Stdout, c.Stderr = p.Stdout, p.Stderr
	return c
}

func (p *Project) run(ctx context.Context, args ...string) error {
	if err := p.Runner.Run(ctx, p.cmd(args...)); err != nil {
		return fmt.Errorf("compose %s: %w", args[0], err)
	}
	return nil
}

// Up starts the services in the background.
func (p *Project) Up(ctx context.Context) error {
	return p.run(ctx, "up", "-d", "--remove-orphans")
}

// Down stops and removes the services.
func (p *Project) Down(ctx context.Context) error {
	return p.run(ctx, "down")
}

// Restart recreates the services.
func (p *Project) Restart(ctx context.Context) error {
	if err := p.Down(ctx); err != nil {
		return err
	}
	return p.Up(ctx)
}

// Pull fetches the images referenced by the compose file.
func (p *Project) Pull(ctx context.Context) error {
	return p.run(ctx, "pull")
}

// Logs streams service logs; follow blocks until interrupted.
func (p *Project) Logs(ctx context.Context, follow bool) error {
	if follow {
		return p.run(ctx, "logs", "-f")
	}
	return p.run(ctx, "logs")
}

// PS returns the IDs of the project's containers, optionally restricted to
// services.
func (p *Project) PS(ctx context.Context, services ...string) ([]string, error) {
	c := p.cmd(append([]string{"ps", "-q"}, services...)...)
	c.Stdout = nil
	out, err := p.Runner.Output(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("compose ps: %w", err)
	}
	return strings.Fields(string(out)), nil
}

// IsUp reports whether at least one container runs.
func (p *Project) IsUp(ctx context.Context) bool {
	ids, err := p.PS(ctx)
	return err == nil && len(ids) > 0
}

// ContainerID returns the first container of service.
func (p *Project) ContainerID(ctx context.Context, service string) (string, error) {
	ids, err := p.PS(ctx, service)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no running container for service %q", service)
	}
	return ids[0], nil
}

// Exec runs args inside service with a TTY-less exec. env entries are
// passed as -e KEY=VALUE.
func (p *Project) Exec(ctx context.Context, service string, env map[string]string, args ...string) error {
	full := []string{"exec"}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		full = append(full, "-e", k+"="+env[k])
	}
	full = append(full, service)
	full = append(full, args...)
	return p.run(ctx, full...)
}

// DownRemoveImages stops the project and deletes the images it used.
func (p *Project) DownRemoveImages(ctx context.Context) error {
	return p.run(ctx, "down", "--rmi", "all")
}
