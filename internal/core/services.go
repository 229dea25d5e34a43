// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core holds the operations behind every CLI verb. Functions take an
// explicit *Services value instead of reading process-wide state, and report
// through the printer and returned errors.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/toeirei/panelctl/internal/backup"
	"github.com/toeirei/panelctl/internal/compose"
	"github.com/toeirei/panelctl/internal/config"
	"github.com/toeirei/panelctl/internal/cron"
	"github.com/toeirei/panelctl/internal/database"
	"github.com/toeirei/panelctl/internal/platform"
	"github.com/toeirei/panelctl/internal/release"
	"github.com/toeirei/panelctl/internal/shell"
	"github.com/toeirei/panelctl/internal/ui"
)

var (
	// ErrNotInstalled is returned when the install directory is missing.
	ErrNotInstalled = errors.New("not installed")
	// ErrNotUp is returned when compose reports no running container.
	ErrNotUp = errors.New("not up")
	// ErrAlreadyUp is returned by up when containers are running.
	ErrAlreadyUp = errors.New("already up")
	// ErrAlreadyDown is returned by down when nothing is running.
	ErrAlreadyDown = errors.New("already down")
	// ErrAborted is returned when the operator declines a confirmation.
	ErrAborted = errors.New("aborted")
)

// Services is the explicit context every operation runs with.
type Services struct {
	Settings config.Settings
	Paths    config.Paths
	Runner   shell.Runner
	Prompt   ui.Prompter
	Out      *ui.Printer
	Releases ReleaseSource
	Probe    platform.Probe
	// HTTP is used for public IP discovery.
	HTTP      *http.Client
	IPSources []string
	PingDB    DatabaseProber
	Notifier  func(token, chatID string) backup.Notifier
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Getenv    func(string) string
	Now       func() time.Time
	// Executable is the running binary, installed as the management script.
	Executable string

	composeBin []string
	host       *platform.Host
	installer  *platform.Installer
}

// DefaultIPSources are queried in order by PublicIP.
var DefaultIPSources = []string{"https://ifconfig.me/ip", "https://api.ipify.org"}

// NewServices wires the production implementations for settings.
func NewServices(s config.Settings) *Services {
	runner := shell.ExecRunner{}
	exe, _ := os.Executable()
	return &Services{
		Settings:   s,
		Paths:      config.ResolvePaths(s),
		Runner:     runner,
		Prompt:     ui.TerminalPrompter{},
		Out:        ui.NewPrinter(os.Stdout),
		Releases:   release.NewClient(s.Repo.APIBase),
		Probe:      platform.DefaultProbe(runner),
		HTTP:       &http.Client{Timeout: 5 * time.Second},
		IPSources:  DefaultIPSources,
		PingDB:     pingURL,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getenv:     os.Getenv,
		Now:        time.Now,
		Executable: exe,
	}
}

func pingURL(ctx context.Context, raw string) error {
	t, err := database.ParseURL(raw)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return database.Ping(ctx, t)
}

func (s *Services) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Services) getenv(k string) string {
	if s.Getenv != nil {
		return s.Getenv(k)
	}
	return ""
}

// RequireInstalled fails unless the install directory exists.
func (s *Services) RequireInstalled() error {
	if !s.Paths.Installed() {
		return fmt.Errorf("%w: %s", ErrNotInstalled, s.Paths.AppDir)
	}
	return nil
}

// Project returns the compose project of the deployment. The compose
// flavour is detected once.
func (s *Services) Project(ctx context.Context) (*compose.Project, error) {
	if s.composeBin == nil {
		bin, err := compose.Detect(ctx, s.Runner)
		if err != nil {
			return nil, err
		}
		s.composeBin = bin
	}
	return &compose.Project{
		Runner:     s.Runner,
		Bin:        s.composeBin,
		File:       s.Paths.ComposeFile,
		EnvFile:    s.Paths.EnvFile,
		ProjectDir: s.Paths.AppDir,
		Stdout:     s.Stdout,
		Stderr:     s.Stderr,
	}, nil
}

// RequireUp fails unless the deployment is installed and running.
func (s *Services) RequireUp(ctx context.Context) (*compose.Project, error) {
	if err := s.RequireInstalled(); err != nil {
		return nil, err
	}
	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsUp(ctx) {
		return nil, ErrNotUp
	}
	return p, nil
}

// Host detects the OS family and architecture once per process.
func (s *Services) Host(ctx context.Context) (platform.Host, error) {
	if s.host != nil {
		return *s.host, nil
	}
	h, err := s.Probe.DetectHost(ctx)
	if err != nil {
		return platform.Host{}, err
	}
	s.host = &h
	return h, nil
}

// Installer returns the package installer for the detected family. The
// index refresh is shared by every caller.
func (s *Services) Installer(ctx context.Context) (*platform.Installer, error) {
	if s.installer != nil {
		return s.installer, nil
	}
	h, err := s.Host(ctx)
	if err != nil {
		return nil, err
	}
	s.installer = platform.NewInstaller(h.Family, s.Runner)
	return s.installer, nil
}

// CronTable is the crontab holding the backup job.
func (s *Services) CronTable() cron.Table {
	return cron.Table{Runner: s.Runner, Marker: cron.Marker(s.Paths.AppName)}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
