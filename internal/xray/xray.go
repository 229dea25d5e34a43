// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package xray installs the proxy-core binary and produces its initial
// configuration.
package xray

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/curve25519"

	"github.com/toeirei/panelctl/internal/platform"
	"github.com/toeirei/panelctl/internal/shell"
)

// BinaryName is the executable inside the release archive.
const BinaryName = "xray"

// AssetName is the release archive name for arch.
func AssetName(arch platform.Arch) string {
	return "Xray-linux-" + string(arch) + ".zip"
}

// DownloadURL builds the release asset URL.
func DownloadURL(downloadBase, repo, tag string, arch platform.Arch) string {
	return fmt.Sprintf("%s/%s/releases/download/%s/%s", strings.TrimRight(downloadBase, "/"), repo, tag, AssetName(arch))
}

// Extract unpacks the release archive into dir and makes the binary
// executable. Entries escaping dir are rejected.
func Extract(archive, dir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open %s: %w", archive, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	root := filepath.Clean(dir) + string(os.PathSeparator)
	found := false
	for _, f := range zr.File {
		target := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry %q escapes %s", f.Name, dir)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		mode := os.FileMode(0o644)
		if f.Name == BinaryName {
			mode = 0o755
			found = true
		}
		if err := extractFile(f, target, mode); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("archive %s has no %s binary", archive, BinaryName)
	}
	return nil
}

func extractFile(f *zip.File, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}

// KeyPair is an X25519 key pair in the base64url form used by REALITY.
type KeyPair struct {
	Private string
	Public  string
}

var errKeyOutput = errors.New("unrecognised x25519 output")

// ParseKeyOutput reads the output of "xray x25519". Both the classic
// "Private key:/Public key:" labels and the newer "PrivateKey:/Password:"
// labels are understood.
func ParseKeyOutput(out []byte) (KeyPair, error) {
	var kp KeyPair
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		label, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", "")) {
		case "privatekey":
			kp.Private = value
		case "publickey", "password":
			kp.Public = value
		}
	}
	if kp.Private == "" || kp.Public == "" {
		return kp, fmt.Errorf("%w: %q", errKeyOutput, strings.TrimSpace(string(out)))
	}
	return kp, nil
}

// Verify checks that Public is the X25519 public key of Private.
func (kp KeyPair) Verify() error {
	priv, err := base64.RawURLEncoding.DecodeString(kp.Private)
	if err != nil {
		return fmt.Errorf("decode private key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return err
	}
	if base64.RawURLEncoding.EncodeToString(pub) != kp.Public {
		return errors.New("public key does not match private key")
	}
	return nil
}

// GenerateKeys runs the key-generation subcommand of binary.
func GenerateKeys(ctx context.Context, r shell.Runner, binary string) (KeyPair, error) {
	out, err := r.Output(ctx, shell.Command(binary, "x25519"))
	if err != nil {
		return KeyPair{}, fmt.Errorf("xray x25519: %w", err)
	}
	kp, err := ParseKeyOutput(out)
	if err != nil {
		return kp, err
	}
	if err := kp.Verify(); err != nil {
		return kp, fmt.Errorf("xray x25519: %w", err)
	}
	return kp, nil
}
