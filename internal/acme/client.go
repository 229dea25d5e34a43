// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package acme

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/toeirei/panelctl/internal/shell"
)

// exitSkipped is acme.sh's status for "certificate still valid, not renewed".
const exitSkipped = 2

// Client drives an acme.sh installation.
type Client struct {
	Runner shell.Runner
	Home   string
	Server string
	Out    io.Writer
}

// Binary is the path of the acme.sh script.
func (c *Client) Binary() string { return filepath.Join(c.Home, "acme.sh") }

// Installed reports whether acme.sh exists under Home.
func (c *Client) Installed() bool {
	_, err := os.Stat(c.Binary())
	return err == nil
}

// Install runs the acme.sh installer script fed through stdin.
func (c *Client) Install(ctx context.Context, script []byte, email string) error {
	args := []string{"-s", "--", "--install-online", "--home", c.Home}
	if email != "" {
		args = append(args, "--accountemail", email)
	}
	cmd := shell.Command("sh", args...)
	cmd.Stdin = bytes.NewReader(script)
	cmd.Stdout, cmd.Stderr = c.Out, c.Out
	if err := c.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("install acme.sh: %w", err)
	}
	return nil
}

// silent builds an acme.sh command without output streams.
func (c *Client) silent(env []string, args ...string) shell.Cmd {
	cmd := shell.Command(c.Binary(), append(args, "--home", c.Home)...)
	cmd.Env = env
	return cmd
}

func (c *Client) cmd(env []string, args ...string) shell.Cmd {
	cmd := c.silent(env, args...)
	cmd.Stdout, cmd.Stderr = c.Out, c.Out
	return cmd
}

// Clear revokes and removes any existing certificate for req. Failures and
// output are discarded; the results are returned for inspection.
func (c *Client) Clear(ctx context.Context, req CertificateRequest) []shell.AttemptResult {
	return []shell.AttemptResult{
		shell.Attempt(ctx, c.Runner, c.silent(nil, "--revoke", "-d", req.Main())),
		shell.Attempt(ctx, c.Runner, c.silent(nil, "--remove", "-d", req.Main())),
		shell.Attempt(ctx, c.Runner, c.silent(nil, "--remove", "-d", req.Main(), "--ecc")),
	}
}

// IssueOptions select the challenge type.
type IssueOptions struct {
	Mode     Mode
	Provider DNSProvider
	// Credentials holds provider environment values keyed by Credential.Env.
	Credentials map[string]string
}

// Issue requests a certificate. "Still valid" is treated as success.
func (c *Client) Issue(ctx context.Context, req CertificateRequest, opts IssueOptions) error {
	args := []string{"--issue"}
	if c.Server != "" {
		args = append(args, "--server", c.Server)
	}
	var env []string
	if opts.Mode == Wildcard {
		args = append(args, "--dns", opts.Provider.Hook)
		keys := make([]string, 0, len(opts.Credentials))
		for k := range opts.Credentials {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+opts.Credentials[k])
		}
	} else {
		args = append(args, "--standalone")
	}
	for _, d := range req.Domains {
		args = append(args, "-d", d)
	}
	err := c.Runner.Run(ctx, c.cmd(env, args...))
	if err != nil && shell.ExitCode(err) != exitSkipped {
		return fmt.Errorf("issue certificate for %s: %w", req.Name, err)
	}
	return nil
}

// InstalledPair is the location of an installed certificate.
type InstalledPair struct {
	Dir       string
	FullChain string
	PrivKey   string
}

// PairFor returns where req is installed under certsDir.
func PairFor(certsDir string, req CertificateRequest) InstalledPair {
	dir := filepath.Join(certsDir, req.Name)
	return InstalledPair{
		Dir:       dir,
		FullChain: filepath.Join(dir, "fullchain.pem"),
		PrivKey:   filepath.Join(dir, "privkey.pem"),
	}
}

// InstallCert copies the issued files into certsDir and restricts them to
// the owner.
func (c *Client) InstallCert(ctx context.Context, req CertificateRequest, certsDir string) (InstalledPair, error) {
	p := PairFor(certsDir, req)
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return p, err
	}
	err := c.Runner.Run(ctx, c.cmd(nil,
		"--install-cert", "-d", req.Main(),
		"--fullchain-file", p.FullChain,
		"--key-file", p.PrivKey,
	))
	if err != nil {
		return p, fmt.Errorf("install certificate for %s: %w", req.Name, err)
	}
	for _, f := range []string{p.FullChain, p.PrivKey} {
		if err := os.Chmod(f, 0o600); err != nil {
			return p, fmt.Errorf("restrict %s: %w", f, err)
		}
	}
	return p, nil
}
