// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package platform

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/toeirei/panelctl/internal/logging"
	"github.com/toeirei/panelctl/internal/shell"
)

// Installer installs system packages with the family's package manager. The
// package index is refreshed once per Installer.
type Installer struct {
	Family  OSFamily
	Runner  shell.Runner
	indexed bool
}

// NewInstaller returns an Installer for family.
func NewInstaller(family OSFamily, r shell.Runner) *Installer {
	return &Installer{Family: family, Runner: r}
}

func (i *Installer) commands(pkgs []string) (update, install shell.Cmd, err error) {
	switch i.Family {
	case Debian:
		update = shell.Command("apt-get", "update", "-qq")
		install = shell.Command("apt-get", append([]string{"install", "-y", "-qq"}, pkgs...)...)
		install.Env = []string{"DEBIAN_FRONTEND=noninteractive"}
	case RHEL:
		update = shell.Command("yum", "makecache", "-q")
		install = shell.Command("yum", append([]string{"install", "-y", "-q"}, pkgs...)...)
	case Fedora:
		update = shell.Command("dnf", "makecache", "-q")
		install = shell.Command("dnf", append([]string{"install", "-y", "-q"}, pkgs...)...)
	case ArchLinux:
		update = shell.Command("pacman", "-Sy", "--noconfirm", "--quiet")
		install = shell.Command("pacman", append([]string{"-S", "--noconfirm", "--quiet", "--needed"}, pkgs...)...)
	case OpenSUSE:
		update = shell.Command("zypper", "--quiet", "refresh")
		install = shell.Command("zypper", append([]string{"--quiet", "install", "-y"}, pkgs...)...)
	default:
		return update, install, ErrUnsupportedOS
	}
	return update, install, nil
}

// Install installs pkgs. A failing package manager aborts with its exit code
// preserved in the returned error.
func (i *Installer) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	update, install, err := i.commands(pkgs)
	if err != nil {
		return err
	}
	if !i.indexed {
		update.Stdout, update.Stderr = os.Stderr, os.Stderr
		if err := i.Runner.Run(ctx, update); err != nil {
			return fmt.Errorf("refresh package index: %w", err)
		}
		i.indexed = true
	}
	logging.Infof("installing %s", strings.Join(pkgs, " "))
	install.Stdout, install.Stderr = os.Stderr, os.Stderr
	if err := i.Runner.Run(ctx, install); err != nil {
		return fmt.Errorf("install %s: %w", strings.Join(pkgs, " "), err)
	}
	return nil
}

// Ensure installs pkg unless binary already resolves on PATH.
func (i *Installer) Ensure(ctx context.Context, binary, pkg string) error {
	if shell.Has(i.Runner, binary) {
		return nil
	}
	return i.Install(ctx, pkg)
}
