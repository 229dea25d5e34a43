// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package acme

import (
	"fmt"
	"strings"
)

// Credential is one environment variable a DNS hook reads.
type Credential struct {
	Env    string
	Label  string
	Secret bool
}

// DNSProvider maps a provider name to its acme.sh DNS hook.
type DNSProvider struct {
	Name        string
	Hook        string
	Credentials []Credential
}

// Providers lists the DNS providers offered for wildcard certificates.
var Providers = []DNSProvider{
	{
		Name: "cloudflare",
		Hook: "dns_cf",
		Credentials: []Credential{
			{Env: "CF_Token", Label: "Cloudflare API token", Secret: true},
			{Env: "CF_Account_ID", Label: "Cloudflare account ID"},
		},
	},
	{
		Name:        "digitalocean",
		Hook:        "dns_dgon",
		Credentials: []Credential{{Env: "DO_API_KEY", Label: "DigitalOcean API key", Secret: true}},
	},
	{
		Name:        "hetzner",
		Hook:        "dns_hetzner",
		Credentials: []Credential{{Env: "HETZNER_Token", Label: "Hetzner DNS token", Secret: true}},
	},
}

// ProviderNames lists the provider names in table order.
func ProviderNames() []string {
	names := make([]string, len(Providers))
	for i, p := range Providers {
		names[i] = p.Name
	}
	return names
}

// ProviderByName looks up a provider.
func ProviderByName(name string) (DNSProvider, error) {
	for _, p := range Providers {
		if p.Name == strings.ToLower(strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return DNSProvider{}, fmt.Errorf("unknown DNS provider %q (choose one of %s)", name, strings.Join(ProviderNames(), ", "))
}
