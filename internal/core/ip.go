// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/toeirei/panelctl/internal/logging"
)

// UnknownIP is reported when every lookup fails.
const UnknownIP = "Unknown IP"

// IPAttempt is one discarded lookup failure.
type IPAttempt struct {
	Source string
	Err    error
}

// LookupPublicIP asks each source in order and returns the first valid
// address. Failed attempts are returned rather than dropped.
func LookupPublicIP(ctx context.Context, client *http.Client, sources []string) (string, []IPAttempt) {
	var failed []IPAttempt
	for _, src := range sources {
		ip, err := fetchIP(ctx, client, src)
		if err == nil {
			return ip, failed
		}
		logging.Debugf("ip lookup via %s failed: %v", src, err)
		failed = append(failed, IPAttempt{Source: src, Err: err})
	}
	return UnknownIP, failed
}

func fetchIP(ctx context.Context, client *http.Client, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "curl/8")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("not an IP address: %q", ip)
	}
	return ip, nil
}

// PublicIP returns the server's public address or UnknownIP.
func (s *Services) PublicIP(ctx context.Context) string {
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	ip, _ := LookupPublicIP(ctx, client, s.IPSources)
	return ip
}
