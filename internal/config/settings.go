// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config resolves manager settings and the derived filesystem layout
// of a deployment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Settings are the manager's own knobs. They never live in the deployment's
// env file.
type Settings struct {
	AppName     string `mapstructure:"app_name" yaml:"app_name"`
	InstallRoot string `mapstructure:"install_root" yaml:"install_root"`
	DataRoot    string `mapstructure:"data_root" yaml:"data_root"`
	BinDir      string `mapstructure:"bin_dir" yaml:"bin_dir"`
	Language    string `mapstructure:"language" yaml:"language"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Panel    PanelSettings    `mapstructure:"panel" yaml:"panel"`
	Repo     RepoSettings     `mapstructure:"repo" yaml:"repo"`
	Telegram TelegramSettings `mapstructure:"telegram" yaml:"telegram"`
	HAProxy  HAProxySettings  `mapstructure:"haproxy" yaml:"haproxy"`
	ACME     ACMESettings     `mapstructure:"acme" yaml:"acme"`
	Backup   BackupSettings   `mapstructure:"backup" yaml:"backup"`
}

// PanelSettings describe the panel container.
type PanelSettings struct {
	Image   string `mapstructure:"image" yaml:"image"`
	Service string `mapstructure:"service" yaml:"service"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

// RepoSettings point at the source-hosting endpoints used for templates,
// release listings and binary downloads.
type RepoSettings struct {
	Panel        string `mapstructure:"panel" yaml:"panel"`
	Core         string `mapstructure:"core" yaml:"core"`
	Branch       string `mapstructure:"branch" yaml:"branch"`
	RawBase      string `mapstructure:"raw_base" yaml:"raw_base"`
	APIBase      string `mapstructure:"api_base" yaml:"api_base"`
	DownloadBase string `mapstructure:"download_base" yaml:"download_base"`
}

// TelegramSettings configure the bot endpoint used for backup delivery.
type TelegramSettings struct {
	APIBase string `mapstructure:"api_base" yaml:"api_base"`
}

// HAProxySettings locate the load balancer configuration.
type HAProxySettings struct {
	Config       string `mapstructure:"config" yaml:"config"`
	FallbackPort int    `mapstructure:"fallback_port" yaml:"fallback_port"`
}

// ACMESettings locate the acme.sh installation.
type ACMESettings struct {
	Home   string `mapstructure:"home" yaml:"home"`
	Server string `mapstructure:"server" yaml:"server"`
	Email  string `mapstructure:"email" yaml:"email"`
}

// BackupSettings tune the backup pipeline.
type BackupSettings struct {
	SplitSizeMB int    `mapstructure:"split_size_mb" yaml:"split_size_mb"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	StagingRoot string `mapstructure:"staging_root" yaml:"staging_root"`
}

// Defaults returns the viper default map for Settings.
func Defaults() map[string]any {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/root"
	}
	return map[string]any{
		"app_name":              "marzban",
		"install_root":          "/opt",
		"data_root":             "/var/lib",
		"bin_dir":               "/usr/local/bin",
		"language":              "en",
		"log_level":             "info",
		"panel.image":           "gozargah/marzban",
		"panel.service":         "marzban",
		"panel.port":            8000,
		"repo.panel":            "Gozargah/Marzban",
		"repo.core":             "XTLS/Xray-core",
		"repo.branch":           "master",
		"repo.raw_base":         "https://raw.githubusercontent.com",
		"repo.api_base":         "https://api.github.com",
		"repo.download_base":    "https://github.com",
		"telegram.api_base":     "https://api.telegram.org",
		"haproxy.config":        "/etc/haproxy/haproxy.cfg",
		"haproxy.fallback_port": 12000,
		"acme.home":             filepath.Join(home, ".acme.sh"),
		"acme.server":           "letsencrypt",
		"acme.email":            "",
		"backup.split_size_mb":  49,
		"backup.log_file":       "",
		"backup.staging_root":   os.TempDir(),
	}
}

var appNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Validate rejects settings that would produce unusable paths.
func (s Settings) Validate() error {
	if !appNamePattern.MatchString(s.AppName) {
		return fmt.Errorf("invalid app name %q", s.AppName)
	}
	for name, dir := range map[string]string{"install_root": s.InstallRoot, "data_root": s.DataRoot, "bin_dir": s.BinDir} {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("%s must be an absolute path, got %q", name, dir)
		}
	}
	if s.Backup.SplitSizeMB <= 0 {
		return fmt.Errorf("backup.split_size_mb must be positive")
	}
	return nil
}

// Paths is the resolved filesystem layout of one deployment.
type Paths struct {
	AppName     string
	AppDir      string
	DataDir     string
	ComposeFile string
	EnvFile     string
	CertsDir    string
	BackupDir   string
	CoreDir     string
	XrayConfig  string
	MySQLDir    string
	SQLiteFile  string
	ScriptPath  string
	BackupLog   string
}

// ResolvePaths derives the deployment layout from s. It touches nothing on
// disk.
func ResolvePaths(s Settings) Paths {
	app := strings.TrimSpace(s.AppName)
	appDir := filepath.Join(s.InstallRoot, app)
	dataDir := filepath.Join(s.DataRoot, app)
	logFile := s.Backup.LogFile
	if logFile == "" {
		logFile = filepath.Join("/var/log", app+"_backup_error.log")
	}
	return Paths{
		AppName:     app,
		AppDir:      appDir,
		DataDir:     dataDir,
		ComposeFile: filepath.Join(appDir, "docker-compose.yml"),
		EnvFile:     filepath.Join(appDir, ".env"),
		CertsDir:    filepath.Join(dataDir, "certs"),
		BackupDir:   filepath.Join(dataDir, "backup"),
		CoreDir:     filepath.Join(dataDir, "xray-core"),
		XrayConfig:  filepath.Join(dataDir, "xray_config.json"),
		MySQLDir:    filepath.Join(dataDir, "mysql"),
		SQLiteFile:  filepath.Join(dataDir, "db.sqlite3"),
		ScriptPath:  filepath.Join(s.BinDir, app),
		BackupLog:   logFile,
	}
}

// Installed reports whether the install directory exists.
func (p Paths) Installed() bool {
	fi, err := os.Stat(p.AppDir)
	return err == nil && fi.IsDir()
}
