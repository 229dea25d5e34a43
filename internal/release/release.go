// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package release talks to the source-hosting release API and downloads
// release artifacts.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidVersion is returned for malformed version strings.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrVersionNotFound is returned when no release carries the tag.
	ErrVersionNotFound = errors.New("version not found")
)

// Channel versions that are always accepted without a lookup.
const (
	Latest = "latest"
	Dev    = "dev"
)

var versionPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// ValidateVersion checks the version format. It never touches the network.
func ValidateVersion(v string) error {
	if v == Latest || v == Dev || versionPattern.MatchString(v) {
		return nil
	}
	return fmt.Errorf("%w: %q (expected latest, dev or vX.Y.Z)", ErrInvalidVersion, v)
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Asset is a file attached to a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

// Release is one entry of the releases listing.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Client queries the release API.
type Client struct {
	HTTP      *http.Client
	APIBase   string
	UserAgent string
}

// NewClient returns a Client with a bounded timeout.
func NewClient(apiBase string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		APIBase:   strings.TrimRight(apiBase, "/"),
		UserAgent: "panelctl",
	}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Releases lists up to perPage releases of repo ("owner/name"), newest first.
func (c *Client) Releases(ctx context.Context, repo string, perPage int) ([]Release, error) {
	var out []Release
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d", c.APIBase, repo, perPage)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the newest non-prerelease release of repo.
func (c *Client) Latest(ctx context.Context, repo string) (Release, error) {
	var r Release
	err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/releases/latest", c.APIBase, repo), &r)
	return r, err
}

// CheckVersion validates the format of version and, for pinned tags, that a
// release carries it. Channel versions skip the lookup.
func (c *Client) CheckVersion(ctx context.Context, repo, version string) error {
	if err := ValidateVersion(version); err != nil {
		return err
	}
	if version == Latest || version == Dev {
		return nil
	}
	rels, err := c.Releases(ctx, repo, 100)
	if err != nil {
		return fmt.Errorf("list releases: %w", err)
	}
	for _, r := range rels {
		if r.TagName == version {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
}

// Fetch returns the body of url.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// FetchText returns the trimmed body of url.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	b, err := c.Fetch(ctx, url)
	return strings.TrimSpace(string(b)), err
}

// Download streams url into dest, replacing it atomically.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// RawURL builds a raw file URL for repo at branch.
func RawURL(rawBase, repo, branch, file string) string {
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(rawBase, "/"), repo, branch, file)
}
