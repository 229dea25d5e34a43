// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package platform

import (
	"bufio"
	"fmt"
	"strings"
)

// Arch is the architecture tag used in proxy-core release asset names.
type Arch string

const (
	Arch32       Arch = "32"
	Arch64       Arch = "64"
	ArchARM32v5  Arch = "arm32-v5"
	ArchARM32v6  Arch = "arm32-v6"
	ArchARM32v7a Arch = "arm32-v7a"
	ArchARM64v8a Arch = "arm64-v8a"
	ArchMIPS32   Arch = "mips32"
	ArchMIPS32le Arch = "mips32le"
	ArchMIPS64   Arch = "mips64"
	ArchMIPS64le Arch = "mips64le"
	ArchPPC64    Arch = "ppc64"
	ArchPPC64le  Arch = "ppc64le"
	ArchRISCV64  Arch = "riscv64"
	ArchS390x    Arch = "s390x"
)

// CPUInfo carries the probes that refine the uname machine string.
type CPUInfo struct {
	Raw          string // contents of /proc/cpuinfo
	LittleEndian bool   // mips64 only
}

// HasFeature reports whether any "Features" line lists feature.
func (c CPUInfo) HasFeature(feature string) bool {
	sc := bufio.NewScanner(strings.NewReader(c.Raw))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "features") {
			continue
		}
		for _, f := range strings.Fields(v) {
			if f == feature {
				return true
			}
		}
	}
	return false
}

// NormalizeArch maps a uname -m value onto the closed Arch set.
func NormalizeArch(machine string, cpu CPUInfo) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(machine)) {
	case "i386", "i686":
		return Arch32, nil
	case "amd64", "x86_64":
		return Arch64, nil
	case "armv5tel":
		return ArchARM32v5, nil
	case "armv6l":
		if !cpu.HasFeature("vfp") {
			return ArchARM32v5, nil
		}
		return ArchARM32v6, nil
	case "armv7", "armv7l":
		if !cpu.HasFeature("vfp") {
			return ArchARM32v5, nil
		}
		return ArchARM32v7a, nil
	case "armv8", "aarch64", "arm64":
		return ArchARM64v8a, nil
	case "mips":
		return ArchMIPS32, nil
	case "mipsle":
		return ArchMIPS32le, nil
	case "mips64":
		if cpu.LittleEndian {
			return ArchMIPS64le, nil
		}
		return ArchMIPS64, nil
	case "mips64le":
		return ArchMIPS64le, nil
	case "ppc64":
		return ArchPPC64, nil
	case "ppc64le":
		return ArchPPC64le, nil
	case "riscv64":
		return ArchRISCV64, nil
	case "s390x":
		return ArchS390x, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedArch, machine)
}
