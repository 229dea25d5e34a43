// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package platform detects the host distribution family and CPU architecture
// and installs system packages with the matching package manager.
package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toeirei/panelctl/internal/shell"
)

var (
	// ErrUnsupportedOS is returned for distributions outside the known families.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrUnsupportedArch is returned for machines without a proxy-core build.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// OSFamily is a closed set of distribution families.
type OSFamily int

const (
	Unsupported OSFamily = iota
	Debian
	RHEL
	Fedora
	ArchLinux
	OpenSUSE
)

func (f OSFamily) String() string {
	switch f {
	case Debian:
		return "debian"
	case RHEL:
		return "rhel"
	case Fedora:
		return "fedora"
	case ArchLinux:
		return "arch"
	case OpenSUSE:
		return "opensuse"
	default:
		return "unsupported"
	}
}

// PackageManager names the package manager binary of the family.
func (f OSFamily) PackageManager() string {
	switch f {
	case Debian:
		return "apt-get"
	case RHEL:
		return "yum"
	case Fedora:
		return "dnf"
	case ArchLinux:
		return "pacman"
	case OpenSUSE:
		return "zypper"
	default:
		return ""
	}
}

// ManagesEdge reports whether TLS, load balancer and firewall provisioning
// run on this family. Other families get the containers only.
func (f OSFamily) ManagesEdge() bool { return f == Debian }

// Release holds the fields of /etc/os-release relevant to detection.
type Release struct {
	ID        string
	IDLike    []string
	Name      string
	VersionID string
}

// ParseOSRelease reads an os-release formatted stream.
func ParseOSRelease(r io.Reader) (Release, error) {
	var rel Release
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		switch k {
		case "ID":
			rel.ID = strings.ToLower(v)
		case "ID_LIKE":
			rel.IDLike = strings.Fields(strings.ToLower(v))
		case "NAME":
			rel.Name = v
		case "VERSION_ID":
			rel.VersionID = v
		}
	}
	if err := sc.Err(); err != nil {
		return rel, err
	}
	if rel.ID == "" && rel.Name == "" {
		return rel, fmt.Errorf("%w: no ID or NAME in os-release", ErrUnsupportedOS)
	}
	return rel, nil
}

var familyByID = map[string]OSFamily{
	"ubuntu":              Debian,
	"debian":              Debian,
	"centos":              RHEL,
	"almalinux":           RHEL,
	"rocky":               RHEL,
	"rhel":                RHEL,
	"amzn":                RHEL,
	"fedora":              Fedora,
	"arch":                ArchLinux,
	"manjaro":             ArchLinux,
	"opensuse":            OpenSUSE,
	"opensuse-leap":       OpenSUSE,
	"opensuse-tumbleweed": OpenSUSE,
	"sles":                OpenSUSE,
}

// Family maps the release to a family, consulting ID before ID_LIKE.
func (r Release) Family() OSFamily {
	if f, ok := familyByID[r.ID]; ok {
		return f
	}
	for _, like := range r.IDLike {
		if f, ok := familyByID[like]; ok {
			return f
		}
	}
	return Unsupported
}

// DetectFamily reads the os-release file at path.
func DetectFamily(path string) (OSFamily, Release, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unsupported, Release{}, fmt.Errorf("%w: %v", ErrUnsupportedOS, err)
	}
	defer f.Close()
	rel, err := ParseOSRelease(f)
	if err != nil {
		return Unsupported, rel, err
	}
	fam := rel.Family()
	if fam == Unsupported {
		return fam, rel, fmt.Errorf("%w: %s", ErrUnsupportedOS, rel.Name)
	}
	return fam, rel, nil
}

// Host is the detection result for the machine the manager runs on.
type Host struct {
	Family  OSFamily
	Release Release
	Arch    Arch
}

// Probe locates the files and commands used for detection.
type Probe struct {
	OSRelease string
	CPUInfo   string
	Runner    shell.Runner
}

// DefaultProbe reads the usual Linux locations.
func DefaultProbe(r shell.Runner) Probe {
	return Probe{OSRelease: "/etc/os-release", CPUInfo: "/proc/cpuinfo", Runner: r}
}

// DetectHost resolves family and architecture. Either being unsupported is
// an error.
func (p Probe) DetectHost(ctx context.Context) (Host, error) {
	fam, rel, err := DetectFamily(p.OSRelease)
	if err != nil {
		return Host{}, err
	}
	arch, err := p.DetectArch(ctx)
	if err != nil {
		return Host{}, err
	}
	return Host{Family: fam, Release: rel, Arch: arch}, nil
}

// DetectArch runs uname -m and normalizes the result.
func (p Probe) DetectArch(ctx context.Context) (Arch, error) {
	out, err := p.Runner.Output(ctx, shell.Command("uname", "-m"))
	if err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	machine := strings.TrimSpace(string(out))

	var cpu CPUInfo
	if data, err := os.ReadFile(p.CPUInfo); err == nil {
		cpu.Raw = string(data)
	}
	if machine == "mips64" {
		if lscpu, err := p.Runner.Output(ctx, shell.Command("lscpu")); err == nil {
			cpu.LittleEndian = strings.Contains(string(lscpu), "Little Endian")
		}
	}
	return NormalizeArch(machine, cpu)
}
