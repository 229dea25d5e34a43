// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"

	"github.com/toeirei/panelctl/internal/release"
)

// ReleaseSource is the remote side of installs and updates: release
// listings, raw template files and binary downloads.
type ReleaseSource interface {
	CheckVersion(ctx context.Context, repo, version string) error
	Releases(ctx context.Context, repo string, perPage int) ([]release.Release, error)
	Latest(ctx context.Context, repo string) (release.Release, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url, dest string) error
}

// DatabaseProber reports whether the deployment database answers.
type DatabaseProber func(ctx context.Context, sqlURL string) error
