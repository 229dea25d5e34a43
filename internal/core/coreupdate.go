// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/toeirei/panelctl/internal/envfile"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/release"
	"github.com/toeirei/panelctl/internal/xray"
)

// CoreReleaseChoices is how many recent core releases are offered.
const CoreReleaseChoices = 5

// RunCoreUpdateCmd installs a proxy-core release chosen by the operator (or
// version when set), points the env file at it and restarts the panel.
func RunCoreUpdateCmd(ctx context.Context, s *Services, version string) (string, error) {
	if err := s.RequireInstalled(); err != nil {
		return "", err
	}
	host, err := s.Host(ctx)
	if err != nil {
		return "", err
	}
	repo := s.Settings.Repo.Core

	tag := version
	if tag == "" || tag == release.Latest {
		rels, err := s.Releases.Releases(ctx, repo, CoreReleaseChoices)
		if err != nil {
			return "", fmt.Errorf("list core releases: %w", err)
		}
		if len(rels) == 0 {
			return "", fmt.Errorf("%w: no releases of %s", release.ErrVersionNotFound, repo)
		}
		tags := make([]string, len(rels))
		for i, r := range rels {
			tags[i] = r.TagName
		}
		tag = tags[0]
		if version == "" {
			tag = s.Prompt.Choose(i18n.T("core.prompt_version"), tags, tags[0])
		}
	} else if err := s.Releases.CheckVersion(ctx, repo, tag); err != nil {
		return "", err
	}

	if _, err := installCore(ctx, s, host.Arch, tag); err != nil {
		return "", err
	}
	err = envfile.Update(s.Paths.EnvFile, map[string]string{
		envfile.XrayExecutablePath: filepath.Join(s.Paths.CoreDir, xray.BinaryName),
	})
	if err != nil {
		return tag, err
	}

	p, err := s.Project(ctx)
	if err != nil {
		return tag, err
	}
	if p.IsUp(ctx) {
		if err := p.Restart(ctx); err != nil {
			return tag, err
		}
	}
	s.Out.Success("%s", i18n.T("core.updated", tag))
	return tag, nil
}
