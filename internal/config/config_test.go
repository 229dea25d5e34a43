// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	cfg "github.com/toeirei/panelctl/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	t.Setenv("APP_NAME", "")
	t.Chdir(tmp)
	return tmp
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	s, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.AppName != "marzban" || s.InstallRoot != "/opt" || s.DataRoot != "/var/lib" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Backup.SplitSizeMB != 49 {
		t.Fatalf("expected 49 MiB split size, got %d", s.Backup.SplitSizeMB)
	}
	if s.Panel.Service != "marzban" || s.Repo.Core != "XTLS/Xray-core" {
		t.Fatalf("unexpected nested defaults: %+v", s)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "custom.yaml")
	content := "app_name: panel2\ninstall_root: /srv\nbackup:\n  split_size_mb: 10\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.AppName != "panel2" || s.InstallRoot != "/srv" || s.Backup.SplitSizeMB != 10 {
		t.Fatalf("file values not applied: %+v", s)
	}
	if s.DataRoot != "/var/lib" {
		t.Fatalf("defaults must survive partial files, got %q", s.DataRoot)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PANELCTL_DATA_ROOT", "/data")
	t.Setenv("PANELCTL_HAPROXY_CONFIG", "/tmp/haproxy.cfg")

	s, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.DataRoot != "/data" {
		t.Fatalf("expected env override for data_root, got %q", s.DataRoot)
	}
	if s.HAProxy.Config != "/tmp/haproxy.cfg" {
		t.Fatalf("expected env override for nested key, got %q", s.HAProxy.Config)
	}
}

func TestLoadConfig_LegacyAppName(t *testing.T) {
	isolate(t)
	t.Setenv("APP_NAME", "vpnpanel")

	s, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.AppName != "vpnpanel" {
		t.Fatalf("expected APP_NAME to be honoured, got %q", s.AppName)
	}
}

func withArg0(t *testing.T, arg0 string) {
	t.Helper()
	orig := os.Args[0]
	os.Args[0] = arg0
	t.Cleanup(func() { os.Args[0] = orig })
}

func TestLoadConfig_AppNameFromInstalledBinary(t *testing.T) {
	isolate(t)
	withArg0(t, "/usr/local/bin/foo")

	s, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.AppName != "foo" {
		t.Fatalf("expected app name from binary, got %q", s.AppName)
	}
	if p := cfg.ResolvePaths(s); p.EnvFile != "/opt/foo/.env" {
		t.Fatalf("unexpected env file %q", p.EnvFile)
	}
}

func TestLoadConfig_AppNamePrecedence(t *testing.T) {
	tmp := isolate(t)
	withArg0(t, "/usr/local/bin/foo")

	t.Setenv("APP_NAME", "vpnpanel")
	s, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.AppName != "vpnpanel" {
		t.Fatalf("APP_NAME must beat the binary name, got %q", s.AppName)
	}

	file := filepath.Join(tmp, "custom.yaml")
	if err := os.WriteFile(file, []byte("app_name: fromfile\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if s.AppName != "fromfile" {
		t.Fatalf("settings file must beat APP_NAME, got %q", s.AppName)
	}
}

func TestAppNameFromBinary(t *testing.T) {
	cases := map[string]string{
		"/usr/local/bin/foo":      "foo",
		"marzban":                 "marzban",
		"/usr/local/bin/panelctl": "",
		"/tmp/go-build1/cli.test": "",
		"":                        "",
		"/":                       "",
		"/usr/bin/-bad":           "",
	}
	for in, want := range cases {
		if got := cfg.AppNameFromBinary(in); got != want {
			t.Errorf("AppNameFromBinary(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "out", "panelctl.yaml")

	s := cfg.Settings{AppName: "marzban", InstallRoot: "/opt", DataRoot: "/var/lib", BinDir: "/usr/local/bin"}
	s.Backup.SplitSizeMB = 20
	written, err := cfg.WriteConfigFile(&s, false, path)
	if err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	if written != path {
		t.Fatalf("expected %s, got %s", path, written)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", fi.Mode().Perm())
	}

	back, err := cfg.LoadConfig[cfg.Settings](&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if back.Backup.SplitSizeMB != 20 {
		t.Fatalf("expected persisted split size, got %d", back.Backup.SplitSizeMB)
	}
}

func TestResolvePaths(t *testing.T) {
	s := cfg.Settings{AppName: "marzban", InstallRoot: "/opt", DataRoot: "/var/lib", BinDir: "/usr/local/bin"}
	p := cfg.ResolvePaths(s)

	want := map[string]string{
		"AppDir":      "/opt/marzban",
		"DataDir":     "/var/lib/marzban",
		"ComposeFile": "/opt/marzban/docker-compose.yml",
		"EnvFile":     "/opt/marzban/.env",
		"CertsDir":    "/var/lib/marzban/certs",
		"BackupDir":   "/var/lib/marzban/backup",
		"CoreDir":     "/var/lib/marzban/xray-core",
		"XrayConfig":  "/var/lib/marzban/xray_config.json",
		"MySQLDir":    "/var/lib/marzban/mysql",
		"ScriptPath":  "/usr/local/bin/marzban",
		"BackupLog":   "/var/log/marzban_backup_error.log",
	}
	got := map[string]string{
		"AppDir": p.AppDir, "DataDir": p.DataDir, "ComposeFile": p.ComposeFile,
		"EnvFile": p.EnvFile, "CertsDir": p.CertsDir, "BackupDir": p.BackupDir,
		"CoreDir": p.CoreDir, "XrayConfig": p.XrayConfig, "MySQLDir": p.MySQLDir,
		"ScriptPath": p.ScriptPath, "BackupLog": p.BackupLog,
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s: expected %q, got %q", k, w, got[k])
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	ok := cfg.Settings{AppName: "marzban", InstallRoot: "/opt", DataRoot: "/var/lib", BinDir: "/usr/local/bin"}
	ok.Backup.SplitSizeMB = 49
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid settings: %v", err)
	}

	bad := ok
	bad.AppName = "../etc"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected invalid app name to be rejected")
	}

	rel := ok
	rel.DataRoot = "var/lib"
	if err := rel.Validate(); err == nil {
		t.Fatalf("expected relative data root to be rejected")
	}
}
