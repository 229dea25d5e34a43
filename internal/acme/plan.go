// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package acme plans certificate requests and drives the acme.sh client.
package acme

import (
	"fmt"
	"strings"
)

// Mode selects how domains are grouped into certificates.
type Mode int

const (
	// Standard issues one certificate with every domain as a SAN entry.
	Standard Mode = iota
	// Wildcard issues one *.root + root certificate per root domain.
	Wildcard
)

func (m Mode) String() string {
	if m == Wildcard {
		return "wildcard"
	}
	return "standard"
}

// ParseMode accepts "standard" and "wildcard".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "":
		return Standard, nil
	case "wildcard":
		return Wildcard, nil
	}
	return Standard, fmt.Errorf("unknown certificate mode %q", s)
}

// ParseDomains splits a comma separated list, lowercasing and dropping empty
// and repeated entries while keeping order.
func ParseDomains(list string) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range strings.Split(list, ",") {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// RootDomain returns the last two labels of host. Multi-label public
// suffixes such as co.uk are not recognised: foo.example.co.uk yields co.uk.
func RootDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// CertificateRequest is one certificate to issue. Name is the primary
// identifier and names the installed files.
type CertificateRequest struct {
	Name    string
	Domains []string
}

// Main is the domain acme.sh files the certificate under.
func (r CertificateRequest) Main() string {
	if len(r.Domains) == 0 {
		return r.Name
	}
	return r.Domains[0]
}

// Plan groups domains into certificate requests. Domains must be non-empty;
// the first entry is the primary domain.
func Plan(domains []string, mode Mode) []CertificateRequest {
	if len(domains) == 0 {
		return nil
	}
	if mode == Standard {
		return []CertificateRequest{{Name: domains[0], Domains: append([]string(nil), domains...)}}
	}
	seen := map[string]bool{}
	var out []CertificateRequest
	for _, d := range domains {
		root := RootDomain(d)
		if seen[root] {
			continue
		}
		seen[root] = true
		out = append(out, CertificateRequest{Name: root, Domains: []string{"*." + root, root}})
	}
	return out
}
