// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/toeirei/panelctl/internal/shell"
)

func project(rec *shell.Recorder) *Project {
	return &Project{
		Runner:     rec,
		Bin:        []string{"docker", "compose"},
		File:       "/opt/marzban/docker-compose.yml",
		ProjectDir: "/opt/marzban",
	}
}

func TestDetect_PrefersPlugin(t *testing.T) {
	rec := shell.NewRecorder().Provide("docker", "docker-compose")
	bin, err := Detect(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(bin, " ") != "docker compose" {
		t.Fatalf("expected docker compose, got %v", bin)
	}
}

func TestDetect_FallsBackToStandalone(t *testing.T) {
	rec := shell.NewRecorder().Provide("docker", "docker-compose").On("docker compose version", "", shell.ExitStatus(1))
	bin, err := Detect(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(bin, " ") != "docker-compose" {
		t.Fatalf("expected docker-compose, got %v", bin)
	}

	if _, err := Detect(context.Background(), shell.NewRecorder()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProject_Verbs(t *testing.T) {
	rec := shell.NewRecorder()
	p := project(rec)
	ctx := context.Background()

	if err := p.Restart(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Exec(ctx, "marzban", map[string]string{"CLI_PROG_NAME": "marzban cli"}, "marzban-cli", "user", "list"); err != nil {
		t.Fatal(err)
	}
	prefix := "docker compose -f /opt/marzban/docker-compose.yml --project-directory /opt/marzban "
	want := []string{
		prefix + "down",
		prefix + "up -d --remove-orphans",
		prefix + "exec -e CLI_PROG_NAME=marzban cli marzban marzban-cli user list",
	}
	if got := rec.Calls(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected calls:\n%s", strings.Join(got, "\n"))
	}
}

func TestProject_IsUp(t *testing.T) {
	rec := shell.NewRecorder()
	p := project(rec)
	if p.IsUp(context.Background()) {
		t.Fatalf("empty ps output means down")
	}

	rec.On("docker compose", "4f2a\n9c1b\n", nil)
	if !p.IsUp(context.Background()) {
		t.Fatalf("container ids mean up")
	}
	id, err := p.ContainerID(context.Background(), "mariadb")
	if err != nil || id != "4f2a" {
		t.Fatalf("unexpected container id %q %v", id, err)
	}
}

func TestProject_WrapsFailures(t *testing.T) {
	rec := shell.NewRecorder().On("docker compose", "", shell.ExitStatus(3))
	err := project(rec).Pull(context.Background())
	if err == nil || shell.ExitCode(err) != 3 {
		t.Fatalf("expected exit status 3 to propagate, got %v", err)
	}
}
