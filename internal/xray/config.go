// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package xray

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the subset of the proxy-core configuration the manager writes.
type Config struct {
	Log       Log        `json:"log"`
	Inbounds  []Inbound  `json:"inbounds"`
	Outbounds []Outbound `json:"outbounds"`
	Routing   Routing    `json:"routing"`
}

type Log struct {
	LogLevel string `json:"loglevel"`
}

type Inbound struct {
	Tag            string          `json:"tag"`
	Listen         string          `json:"listen,omitempty"`
	Port           int             `json:"port"`
	Protocol       string          `json:"protocol"`
	Settings       InboundSettings `json:"settings"`
	StreamSettings StreamSettings  `json:"streamSettings"`
	Sniffing       Sniffing        `json:"sniffing"`
}

type InboundSettings struct {
	Clients    []any  `json:"clients"`
	Decryption string `json:"decryption"`
}

type StreamSettings struct {
	Network         string           `json:"network"`
	Security        string           `json:"security"`
	RealitySettings *RealitySettings `json:"realitySettings,omitempty"`
}

type RealitySettings struct {
	Show        bool     `json:"show"`
	Dest        string   `json:"dest"`
	Xver        int      `json:"xver"`
	ServerNames []string `json:"serverNames"`
	PrivateKey  string   `json:"privateKey"`
	PublicKey   string   `json:"publicKey,omitempty"`
	ShortIDs    []string `json:"shortIds"`
}

type Sniffing struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride"`
}

type Outbound struct {
	Protocol string `json:"protocol"`
	Tag      string `json:"tag"`
}

type Routing struct {
	DomainStrategy string `json:"domainStrategy,omitempty"`
	Rules          []Rule `json:"rules"`
}

type Rule struct {
	Type        string   `json:"type"`
	IP          []string `json:"ip,omitempty"`
	Protocol    []string `json:"protocol,omitempty"`
	OutboundTag string   `json:"outboundTag"`
}

// Options shape the generated inbound.
type Options struct {
	Port       int
	ServerName string
	ShortID    string
}

// DefaultServerName is the REALITY camouflage target.
const DefaultServerName = "www.google.com"

// NewShortID returns 8 random hex characters.
func NewShortID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewConfig builds a VLESS REALITY inbound bound to the loopback fallback
// port behind the load balancer, plus direct and blackhole outbounds.
func NewConfig(kp KeyPair, opts Options) Config {
	if opts.ServerName == "" {
		opts.ServerName = DefaultServerName
	}
	return Config{
		Log: Log{LogLevel: "warning"},
		Inbounds: []Inbound{{
			Tag:      "VLESS TCP REALITY",
			Listen:   "127.0.0.1",
			Port:     opts.Port,
			Protocol: "vless",
			Settings: InboundSettings{Clients: []any{}, Decryption: "none"},
			StreamSettings: StreamSettings{
				Network:  "tcp",
				Security: "reality",
				RealitySettings: &RealitySettings{
					Dest:        opts.ServerName + ":443",
					ServerNames: []string{opts.ServerName},
					PrivateKey:  kp.Private,
					PublicKey:   kp.Public,
					ShortIDs:    []string{opts.ShortID},
				},
			},
			Sniffing: Sniffing{Enabled: true, DestOverride: []string{"http", "tls", "quic"}},
		}},
		Outbounds: []Outbound{
			{Protocol: "freedom", Tag: "DIRECT"},
			{Protocol: "blackhole", Tag: "BLOCK"},
		},
		Routing: Routing{
			DomainStrategy: "IPIfNonMatch",
			Rules: []Rule{
				{Type: "field", IP: []string{"geoip:private"}, OutboundTag: "BLOCK"},
				{Type: "field", Protocol: []string{"bittorrent"}, OutboundTag: "BLOCK"},
			},
		},
	}
}

// WriteFile writes c as indented JSON, replacing any previous file.
func (c Config) WriteFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
