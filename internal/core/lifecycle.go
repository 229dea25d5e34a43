// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/toeirei/panelctl/internal/database"
	"github.com/toeirei/panelctl/internal/envfile"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/shell"
)

// RunUpCmd starts the deployment and follows its logs unless noLogs.
func RunUpCmd(ctx context.Context, s *Services, noLogs bool) error {
	if err := s.RequireInstalled(); err != nil {
		return err
	}
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}
	if p.IsUp(ctx) {
		return ErrAlreadyUp
	}
	if err := p.Up(ctx); err != nil {
		return err
	}
	s.Out.Success("%s", i18n.T("lifecycle.up_done", s.Paths.AppName))
	if noLogs {
		return nil
	}
	return p.Logs(ctx, true)
}

// RunDownCmd stops the deployment.
func RunDownCmd(ctx context.Context, s *Services) error {
	if err := s.RequireInstalled(); err != nil {
		return err
	}
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}
	if !p.IsUp(ctx) {
		return ErrAlreadyDown
	}
	if err := p.Down(ctx); err != nil {
		return err
	}
	s.Out.Success("%s", i18n.T("lifecycle.down_done", s.Paths.AppName))
	return nil
}

// RunRestartCmd stops and starts the deployment.
func RunRestartCmd(ctx context.Context, s *Services, noLogs bool) error {
	if err := s.RequireInstalled(); err != nil {
		return err
	}
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}
	if err := p.Restart(ctx); err != nil {
		return err
	}
	s.Out.Success("%s", i18n.T("lifecycle.restart_done", s.Paths.AppName))
	if noLogs {
		return nil
	}
	return p.Logs(ctx, true)
}

// Status is the outcome of RunStatusCmd.
type Status struct {
	Installed  bool
	Up         bool
	Containers []string
	Database   database.Backend
	// DatabaseErr is set when the reachability probe failed.
	DatabaseErr error
}

// RunStatusCmd reports whether the deployment is installed and up. A
// missing install returns ErrNotInstalled and a stopped one ErrNotUp, after
// printing the status line.
func RunStatusCmd(ctx context.Context, s *Services) (Status, error) {
	var st Status
	if err := s.RequireInstalled(); err != nil {
		s.Out.Error("%s", i18n.T("status.not_installed"))
		return st, err
	}
	st.Installed = true
	p, err := s.Project(ctx)
	if err != nil {
		return st, err
	}
	ids, err := p.PS(ctx)
	if err != nil {
		return st, err
	}
	if len(ids) == 0 {
		s.Out.Warn("%s", i18n.T("status.down"))
		return st, ErrNotUp
	}
	st.Up, st.Containers = true, ids
	s.Out.Success("%s", i18n.T("status.up", len(ids)))

	env, err := envfile.Load(s.Paths.EnvFile)
	if err != nil {
		return st, nil
	}
	raw, ok := env.Get(envfile.SQLAlchemyDatabaseURL)
	if !ok || raw == "" || s.PingDB == nil {
		return st, nil
	}
	if t, err := database.ParseURL(raw); err == nil {
		st.Database = t.Backend
	}
	if st.DatabaseErr = s.PingDB(ctx, raw); st.DatabaseErr != nil {
		s.Out.Warn("%s", i18n.T("status.database_unreachable", st.Database, st.DatabaseErr))
	} else {
		s.Out.Info("%s", i18n.T("status.database_ok", st.Database))
	}
	return st, nil
}

// RunLogsCmd shows the compose logs.
func RunLogsCmd(ctx context.Context, s *Services, follow bool) error {
	p, err := s.RequireUp(ctx)
	if err != nil {
		return err
	}
	return p.Logs(ctx, follow)
}

// RunCLICmd runs the panel's own CLI inside its container.
func RunCLICmd(ctx context.Context, s *Services, args []string) error {
	p, err := s.RequireUp(ctx)
	if err != nil {
		return err
	}
	svc := s.Settings.Panel.Service
	env := map[string]string{"CLI_PROG_NAME": s.Paths.AppName + " cli"}
	return p.Exec(ctx, svc, env, append([]string{svc + "-cli"}, args...)...)
}

// RunEditCmd opens the compose file in the operator's editor.
func RunEditCmd(ctx context.Context, s *Services) error {
	return editFile(ctx, s, s.Paths.ComposeFile)
}

// RunEditEnvCmd opens the env file in the operator's editor.
func RunEditEnvCmd(ctx context.Context, s *Services) error {
	return editFile(ctx, s, s.Paths.EnvFile)
}

// editors are tried in order when $EDITOR is unset.
var editors = []string{"nano", "vi", "vim"}

func editFile(ctx context.Context, s *Services, path string) error {
	if err := s.RequireInstalled(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	editor, err := findEditor(ctx, s)
	if err != nil {
		return err
	}
	fields := strings.Fields(editor)
	c := shell.Command(fields[0], append(fields[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = s.Stdin, s.Stdout, s.Stderr
	return s.Runner.Run(ctx, c)
}

func findEditor(ctx context.Context, s *Services) (string, error) {
	if e := strings.TrimSpace(s.getenv("EDITOR")); e != "" {
		return e, nil
	}
	for _, e := range editors {
		if shell.Has(s.Runner, e) {
			return e, nil
		}
	}
	inst, err := s.Installer(ctx)
	if err != nil {
		return "", err
	}
	if err := inst.Install(ctx, "nano"); err != nil {
		return "", errors.Join(errors.New("no editor available"), err)
	}
	return "nano", nil
}
