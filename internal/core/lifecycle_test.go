// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/toeirei/panelctl/internal/database"
)

func TestCommandsRequireInstall(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(s *Services) error{
		"up":      func(s *Services) error { return RunUpCmd(ctx, s, true) },
		"down":    func(s *Services) error { return RunDownCmd(ctx, s) },
		"restart": func(s *Services) error { return RunRestartCmd(ctx, s, true) },
		"status":  func(s *Services) error { _, err := RunStatusCmd(ctx, s); return err },
		"logs":    func(s *Services) error { return RunLogsCmd(ctx, s, false) },
		"cli":     func(s *Services) error { return RunCLICmd(ctx, s, []string{"admin", "list"}) },
		"edit":    func(s *Services) error { return RunEditCmd(ctx, s) },
		"update":  func(s *Services) error { return RunUpdateCmd(ctx, s) },
		"uninstall": func(s *Services) error {
			_, err := RunUninstallCmd(ctx, s)
			return err
		},
		"ssl-cert": func(s *Services) error {
			_, err := RunSSLCertCmd(ctx, s, SSLOptions{Domains: "example.com"})
			return err
		},
		"core-update": func(s *Services) error {
			_, err := RunCoreUpdateCmd(ctx, s, "v1.8.0")
			return err
		},
		"backup-service": func(s *Services) error {
			_, err := RunBackupServiceCmd(ctx, s)
			return err
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, "debian")
			f.compose(true)
			if err := run(f.s); !errors.Is(err, ErrNotInstalled) {
				t.Fatalf("expected ErrNotInstalled, got %v", err)
			}
			if calls := f.runner.Calls(); len(calls) != 0 {
				t.Fatalf("no command may run before the install check, got %v", calls)
			}
		})
	}
}

func TestLogsAndCLIRequireRunningDeployment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "UVICORN_PORT = 8000\n")
	f.compose(false)

	if err := RunLogsCmd(ctx, f.s, true); !errors.Is(err, ErrNotUp) {
		t.Fatalf("logs: expected ErrNotUp, got %v", err)
	}
	if err := RunCLICmd(ctx, f.s, []string{"admin", "list"}); !errors.Is(err, ErrNotUp) {
		t.Fatalf("cli: expected ErrNotUp, got %v", err)
	}
	for _, c := range f.runner.Calls() {
		if strings.Contains(c, " logs") || strings.Contains(c, " exec ") {
			t.Fatalf("unexpected command %q", c)
		}
	}
}

func TestUpAndDownRejectRedundantTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "")
	up := f.compose(true)

	if err := RunUpCmd(ctx, f.s, true); !errors.Is(err, ErrAlreadyUp) {
		t.Fatalf("expected ErrAlreadyUp, got %v", err)
	}
	if err := RunDownCmd(ctx, f.s); err != nil {
		t.Fatalf("down: %v", err)
	}
	if *up {
		t.Fatal("deployment still up after down")
	}
	if err := RunDownCmd(ctx, f.s); !errors.Is(err, ErrAlreadyDown) {
		t.Fatalf("expected ErrAlreadyDown, got %v", err)
	}
}

func TestUpWithoutLogs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "")
	up := f.compose(false)

	if err := RunUpCmd(ctx, f.s, true); err != nil {
		t.Fatal(err)
	}
	if !*up {
		t.Fatal("deployment not started")
	}
	want := "docker compose -f " + f.s.Paths.ComposeFile + " --project-directory " + f.s.Paths.AppDir +
		" --env-file " + f.s.Paths.EnvFile + " up -d --remove-orphans"
	if !f.runner.Called(want) {
		t.Fatalf("missing %q in %v", want, f.runner.Calls())
	}
	if f.runner.Called("docker compose -f " + f.s.Paths.ComposeFile + " --project-directory " + f.s.Paths.AppDir + " --env-file " + f.s.Paths.EnvFile + " logs") {
		t.Fatal("logs followed despite noLogs")
	}
}

func TestRestartFollowsLogs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "")
	f.compose(true)

	if err := RunRestartCmd(ctx, f.s, false); err != nil {
		t.Fatal(err)
	}
	calls := f.runner.Calls()
	last := calls[len(calls)-1]
	if !strings.HasSuffix(last, " logs -f") {
		t.Fatalf("last command = %q", last)
	}
}

func TestCLIRunsPanelCLIInsideContainer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "")
	f.compose(true)

	if err := RunCLICmd(ctx, f.s, []string{"admin", "create", "--sudo"}); err != nil {
		t.Fatal(err)
	}
	want := " exec -e CLI_PROG_NAME=marzban cli marzban marzban-cli admin create --sudo"
	found := false
	for _, c := range f.runner.Calls() {
		if strings.HasSuffix(c, want) {
			found = true
		}
	}
	if !found {
		t.Fatalf("exec line not found in %v", f.runner.Calls())
	}
}

func TestStatusReportsDatabase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "SQLALCHEMY_DATABASE_URL = \"mysql+pymysql://marzban:pw@127.0.0.1:3306/marzban\"\n")
	up := f.compose(false)

	st, err := RunStatusCmd(ctx, f.s)
	if !errors.Is(err, ErrNotUp) || !st.Installed || st.Up {
		t.Fatalf("status = %+v, %v", st, err)
	}

	*up = true
	var pinged string
	f.s.PingDB = func(_ context.Context, raw string) error {
		pinged = raw
		return errors.New("connection refused")
	}
	st, err = RunStatusCmd(ctx, f.s)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Up || len(st.Containers) != 1 {
		t.Fatalf("status = %+v", st)
	}
	if pinged != "mysql+pymysql://marzban:pw@127.0.0.1:3306/marzban" {
		t.Fatalf("pinged %q", pinged)
	}
	if st.Database != database.MySQL || st.DatabaseErr == nil {
		t.Fatalf("database = %v, %v", st.Database, st.DatabaseErr)
	}
	if !strings.Contains(f.out.String(), "connection refused") {
		t.Fatalf("output lacks probe error:\n%s", f.out.String())
	}
}

func TestEditUsesEditorVariable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "")
	f.env["EDITOR"] = "code --wait"

	if err := RunEditEnvCmd(ctx, f.s); err != nil {
		t.Fatal(err)
	}
	if calls := f.runner.Calls(); len(calls) != 1 || calls[0] != "code --wait "+f.s.Paths.EnvFile {
		t.Fatalf("calls = %v", calls)
	}
}

func TestEditFallsBackToInstalledEditor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "debian")
	f.installed(t, "")
	f.runner.Provide("vi")

	if err := RunEditCmd(ctx, f.s); err != nil {
		t.Fatal(err)
	}
	if !f.runner.Called("vi " + f.s.Paths.ComposeFile) {
		t.Fatalf("calls = %v", f.runner.Calls())
	}
}
