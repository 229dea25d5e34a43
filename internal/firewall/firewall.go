// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package firewall opens inbound TCP ports with ufw, or iptables when ufw
// is absent.
package firewall

import (
	"context"
	"fmt"
	"strconv"

	"github.com/toeirei/panelctl/internal/shell"
)

// AllowTCP opens each port. Rules already present are left alone.
func AllowTCP(ctx context.Context, r shell.Runner, ports ...int) error {
	useUFW := shell.Has(r, "ufw")
	if !useUFW && !shell.Has(r, "iptables") {
		return fmt.Errorf("neither ufw nor iptables is available")
	}
	for _, p := range ports {
		port := strconv.Itoa(p)
		if useUFW {
			if _, err := r.Output(ctx, shell.Command("ufw", "allow", port+"/tcp")); err != nil {
				return fmt.Errorf("ufw allow %s: %w", port, err)
			}
			continue
		}
		rule := []string{"INPUT", "-p", "tcp", "--dport", port, "-j", "ACCEPT"}
		if _, err := r.Output(ctx, shell.Command("iptables", append([]string{"-C"}, rule...)...)); err == nil {
			continue
		}
		if _, err := r.Output(ctx, shell.Command("iptables", append([]string{"-I"}, rule...)...)); err != nil {
			return fmt.Errorf("iptables allow %s: %w", port, err)
		}
	}
	return nil
}
