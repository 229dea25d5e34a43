// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package haproxy injects the TLS SNI router block into the load balancer
// configuration.
package haproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/toeirei/panelctl/internal/assets"
	"github.com/toeirei/panelctl/internal/shell"
)

// Block describes the router for one deployment.
type Block struct {
	AppName      string
	Domains      []string
	ListenPort   int
	PanelPort    int
	FallbackPort int
}

// Marker identifies the block of app inside the config file.
func Marker(app string) string {
	return "# panelctl:" + app + " sni router"
}

// Render produces the block text.
func (b Block) Render() ([]byte, error) {
	if len(b.Domains) == 0 {
		return nil, errors.New("haproxy block needs at least one domain")
	}
	listen := b.ListenPort
	if listen == 0 {
		listen = 443
	}
	return assets.Render(assets.HAProxySNI, assets.HAProxyData{
		Marker:       Marker(b.AppName),
		Name:         b.AppName,
		Domains:      b.Domains,
		ListenPort:   listen,
		PanelPort:    b.PanelPort,
		FallbackPort: b.FallbackPort,
	})
}

// Ensure appends the block to the config at path unless its marker is
// already present. The first written block wins; later domain changes are
// not merged into it.
func Ensure(path string, b Block) (bool, error) {
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if bytes.Contains(current, []byte(Marker(b.AppName))) {
		return false, nil
	}
	block, err := b.Render()
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	var out bytes.Buffer
	out.Write(current)
	if len(current) > 0 && !bytes.HasSuffix(current, []byte("\n")) {
		out.WriteByte('\n')
	}
	if len(current) > 0 {
		out.WriteByte('\n')
	}
	out.Write(block)
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// Validate checks the config with haproxy -c.
func Validate(ctx context.Context, r shell.Runner, path string) error {
	if _, err := r.Output(ctx, shell.Command("haproxy", "-c", "-f", path)); err != nil {
		return fmt.Errorf("haproxy config check: %w", err)
	}
	return nil
}

// Restart restarts the haproxy service.
func Restart(ctx context.Context, r shell.Runner) error {
	if _, err := r.Output(ctx, shell.Command("systemctl", "restart", "haproxy")); err != nil {
		return fmt.Errorf("restart haproxy: %w", err)
	}
	return nil
}
