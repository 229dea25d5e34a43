// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/toeirei/panelctl/internal/assets"
	"github.com/toeirei/panelctl/internal/backup"
	"github.com/toeirei/panelctl/internal/compose"
	"github.com/toeirei/panelctl/internal/database"
	"github.com/toeirei/panelctl/internal/envfile"
	"github.com/toeirei/panelctl/internal/firewall"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/logging"
	"github.com/toeirei/panelctl/internal/platform"
	"github.com/toeirei/panelctl/internal/release"
	"github.com/toeirei/panelctl/internal/shell"
	"github.com/toeirei/panelctl/internal/xray"
)

// DockerInstallURL serves the upstream convenience install script.
const DockerInstallURL = "https://get.docker.com"

// Remote files in the panel repository.
const (
	envTemplateFile     = ".env.example"
	composeTemplateFile = "docker-compose.yml"
)

// ReadyTimeout bounds the database readiness wait after install;
// ReadyInterval spaces the probes.
var (
	ReadyTimeout  = 60 * time.Second
	ReadyInterval = 2 * time.Second
)

// InstallOptions are the inputs of RunInstallCmd.
type InstallOptions struct {
	Version  string
	Database string
	// Domains is an optional comma separated list handed to the SSL step.
	Domains string
	// Mode preselects the certificate strategy ("standard" or "wildcard").
	Mode string
}

// InstallResult summarises a finished install.
type InstallResult struct {
	Host     platform.Host
	Backend  database.Backend
	Keys     xray.KeyPair
	CoreTag  string
	EdgeDone bool
	SSL      *SSLResult
}

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomPassword returns n random alphanumeric characters.
func RandomPassword(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alnum)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alnum[v.Int64()]
	}
	return string(b), nil
}

func imageTag(version string) string {
	if version == "" {
		return release.Latest
	}
	return version
}

// RunInstallCmd produces a deployment from scratch. Steps already done are
// not rolled back when a later one fails.
func RunInstallCmd(ctx context.Context, s *Services, opts InstallOptions) (InstallResult, error) {
	var res InstallResult
	version := imageTag(opts.Version)
	if err := release.ValidateVersion(version); err != nil {
		return res, err
	}
	backend, err := database.ParseBackend(opts.Database)
	if err != nil {
		return res, err
	}
	res.Backend = backend

	host, err := s.Host(ctx)
	if err != nil {
		return res, err
	}
	res.Host = host
	logging.Infof("detected %s (%s) on %s", host.Family, host.Release.ID, host.Arch)

	if s.Paths.Installed() {
		if !s.Prompt.Confirm(i18n.T("install.confirm_override", s.Paths.AppDir), false) {
			return res, ErrAborted
		}
	}

	if err := s.Releases.CheckVersion(ctx, s.Settings.Repo.Panel, version); err != nil {
		return res, err
	}

	if err := ensureDocker(ctx, s); err != nil {
		return res, err
	}
	proj, err := s.Project(ctx)
	if err != nil {
		return res, err
	}

	for _, dir := range []string{s.Paths.AppDir, s.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, err
		}
	}

	if err := writeCompose(ctx, s, backend, version); err != nil {
		return res, err
	}
	s.Out.Success("%s", i18n.T("install.compose_written", s.Paths.ComposeFile))

	if err := writeEnv(ctx, s, backend); err != nil {
		return res, err
	}
	s.Out.Success("%s", i18n.T("install.env_written", s.Paths.EnvFile))

	tag, err := installCore(ctx, s, host.Arch, "")
	if err != nil {
		return res, err
	}
	res.CoreTag = tag

	kp, err := xray.GenerateKeys(ctx, s.Runner, filepath.Join(s.Paths.CoreDir, xray.BinaryName))
	if err != nil {
		return res, err
	}
	res.Keys = kp
	shortID, err := xray.NewShortID()
	if err != nil {
		return res, err
	}
	cfg := xray.NewConfig(kp, xray.Options{Port: s.Settings.HAProxy.FallbackPort, ShortID: shortID})
	if err := cfg.WriteFile(s.Paths.XrayConfig); err != nil {
		return res, err
	}
	s.Out.Success("%s", i18n.T("install.core_config_written", s.Paths.XrayConfig))

	if err := RunInstallScriptCmd(ctx, s); err != nil {
		s.Out.Warn("%s", i18n.T("install.script_failed", err))
	}

	if err := proj.Up(ctx); err != nil {
		return res, err
	}
	if backend.Server() {
		waitForDatabase(ctx, s)
	}

	if !host.Family.ManagesEdge() {
		logging.Debugf("skipping certificates, load balancer and firewall on %s", host.Family)
		s.Out.Success("%s", i18n.T("install.done", s.Paths.AppName))
		return res, nil
	}

	sslRes, err := RunSSLCertCmd(ctx, s, SSLOptions{Domains: opts.Domains, Mode: opts.Mode})
	if err != nil {
		return res, err
	}
	res.SSL = &sslRes
	if err := firewall.AllowTCP(ctx, s.Runner, 80, 443); err != nil {
		s.Out.Warn("%s", i18n.T("install.firewall_failed", err))
	}
	res.EdgeDone = true
	s.Out.Success("%s", i18n.T("install.done", s.Paths.AppName))
	if len(sslRes.Domains) > 0 {
		s.Out.Info("%s", i18n.T("install.panel_url", sslRes.Domains[0]))
	}
	return res, nil
}

// ensureDocker installs docker through the upstream script when missing.
func ensureDocker(ctx context.Context, s *Services) error {
	if shell.Has(s.Runner, "docker") {
		return nil
	}
	s.Out.Info("%s", i18n.T("install.docker_installing"))
	script, err := s.Releases.Fetch(ctx, DockerInstallURL)
	if err != nil {
		return fmt.Errorf("fetch docker install script: %w", err)
	}
	c := shell.Command("sh", "-s")
	c.Stdin = bytes.NewReader(script)
	c.Stdout, c.Stderr = s.Stdout, s.Stderr
	if err := s.Runner.Run(ctx, c); err != nil {
		return fmt.Errorf("install docker: %w", err)
	}
	s.Out.Success("%s", i18n.T("install.docker_installed"))
	return nil
}

func composeData(s *Services, version string) assets.ComposeData {
	return assets.ComposeData{
		Service:      s.Settings.Panel.Service,
		Image:        s.Settings.Panel.Image + ":" + version,
		DataDir:      s.Paths.DataDir,
		MySQLDir:     s.Paths.MySQLDir,
		Database:     s.Paths.AppName,
		DatabaseUser: s.Paths.AppName,
	}
}

// writeCompose renders the compose file. SQLite deployments use the
// repository's compose file when it can be fetched.
func writeCompose(ctx context.Context, s *Services, backend database.Backend, version string) error {
	if backend == database.SQLite {
		url := release.RawURL(s.Settings.Repo.RawBase, s.Settings.Repo.Panel, s.Settings.Repo.Branch, composeTemplateFile)
		if data, err := s.Releases.Fetch(ctx, url); err == nil {
			doc, err := compose.ParseDocument(data)
			if err == nil {
				if err = doc.SetServiceImageTag(s.Settings.Panel.Service, version); err == nil {
					return doc.WriteFile(s.Paths.ComposeFile)
				}
			}
			logging.Warnf("remote compose file unusable, using built-in template: %v", err)
		} else {
			logging.Debugf("fetch %s: %v", url, err)
		}
	}
	data, err := assets.Compose(backend.String(), composeData(s, version))
	if err != nil {
		return err
	}
	return os.WriteFile(s.Paths.ComposeFile, data, 0o644)
}

// writeEnv fetches the env template and rewrites the database and core keys.
func writeEnv(ctx context.Context, s *Services, backend database.Backend) error {
	url := release.RawURL(s.Settings.Repo.RawBase, s.Settings.Repo.Panel, s.Settings.Repo.Branch, envTemplateFile)
	tmpl, err := s.Releases.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch env template: %w", err)
	}
	f, err := envfile.Parse(bytes.NewReader(tmpl))
	if err != nil {
		return err
	}

	values := map[string]string{
		envfile.XrayJSON:           s.Paths.XrayConfig,
		envfile.XrayExecutablePath: filepath.Join(s.Paths.CoreDir, xray.BinaryName),
		envfile.XrayAssetsPath:     s.Paths.CoreDir,
		envfile.UvicornPort:        fmt.Sprint(s.Settings.Panel.Port),
	}
	if backend.Server() {
		root, err := RandomPassword(20)
		if err != nil {
			return err
		}
		pw, err := s.Prompt.Secret(i18n.T("install.prompt_db_password"))
		if err != nil {
			logging.Debugf("password prompt: %v", err)
			pw = ""
		}
		if pw == "" {
			if pw, err = RandomPassword(20); err != nil {
				return err
			}
			s.Out.Info("%s", i18n.T("install.db_password_generated"))
		}
		db := s.Paths.AppName
		values[envfile.MySQLRootPassword] = root
		values[envfile.MySQLDatabase] = db
		values[envfile.MySQLUser] = db
		values[envfile.MySQLPassword] = pw
		values[envfile.SQLAlchemyDatabaseURL] = database.MySQLURL(db, pw, "127.0.0.1", 3306, db)
	} else {
		values[envfile.SQLAlchemyDatabaseURL] = database.SQLiteURL(s.Paths.SQLiteFile)
	}
	for _, k := range sortedKeys(values) {
		f.Set(k, values[k])
	}
	return f.WriteFile(s.Paths.EnvFile)
}

func waitForDatabase(ctx context.Context, s *Services) {
	if s.PingDB == nil {
		return
	}
	env, err := envfile.Load(s.Paths.EnvFile)
	if err != nil {
		return
	}
	raw, _ := env.Get(envfile.SQLAlchemyDatabaseURL)
	if _, err := database.ParseURL(raw); err != nil {
		logging.Warnf("database url: %v", err)
		return
	}
	s.Out.Info("%s", i18n.T("install.db_waiting"))
	ping := func(ctx context.Context) error { return s.PingDB(ctx, raw) }
	if err := database.WaitReady(ctx, ReadyTimeout, ReadyInterval, ping); err != nil {
		s.Out.Warn("%s", i18n.T("install.db_not_ready", err))
		return
	}
	s.Out.Success("%s", i18n.T("install.db_ready"))
}

// installCore downloads the core release tag (latest when empty) for arch
// into the core directory and returns the installed tag.
func installCore(ctx context.Context, s *Services, arch platform.Arch, tag string) (string, error) {
	if tag == "" {
		rel, err := s.Releases.Latest(ctx, s.Settings.Repo.Core)
		if err != nil {
			return "", fmt.Errorf("latest core release: %w", err)
		}
		tag = rel.TagName
	}
	url := xray.DownloadURL(s.Settings.Repo.DownloadBase, s.Settings.Repo.Core, tag, arch)
	archive := filepath.Join(s.Paths.DataDir, xray.AssetName(arch))
	if err := os.MkdirAll(s.Paths.DataDir, 0o755); err != nil {
		return "", err
	}
	s.Out.Info("%s", i18n.T("core.downloading", tag, arch))
	if err := s.Releases.Download(ctx, url, archive); err != nil {
		return "", fmt.Errorf("download core %s: %w", tag, err)
	}
	defer os.Remove(archive)
	if err := xray.Extract(archive, s.Paths.CoreDir); err != nil {
		return "", err
	}
	s.Out.Success("%s", i18n.T("core.installed", tag, s.Paths.CoreDir))
	return tag, nil
}

// RunInstallScriptCmd installs the running binary as the management command.
func RunInstallScriptCmd(ctx context.Context, s *Services) error {
	if s.Executable == "" {
		return errors.New("cannot locate the running executable")
	}
	src, _ := filepath.EvalSymlinks(s.Executable)
	if src == "" {
		src = s.Executable
	}
	dst := s.Paths.ScriptPath
	if abs, _ := filepath.Abs(dst); abs == src {
		return nil
	}
	if err := backup.CopyFile(src, dst); err != nil {
		return fmt.Errorf("install %s: %w", dst, err)
	}
	if err := os.Chmod(dst, 0o755); err != nil {
		return err
	}
	s.Out.Success("%s", i18n.T("install.script_installed", dst))
	return nil
}

// RunUpdateCmd refreshes the management command, pulls images and
// recreates the containers.
func RunUpdateCmd(ctx context.Context, s *Services) error {
	if err := s.RequireInstalled(); err != nil {
		return err
	}
	if err := RunInstallScriptCmd(ctx, s); err != nil {
		s.Out.Warn("%s", i18n.T("install.script_failed", err))
	}
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}
	s.Out.Info("%s", i18n.T("update.pulling"))
	if err := p.Pull(ctx); err != nil {
		return err
	}
	if p.IsUp(ctx) {
		if err := p.Down(ctx); err != nil {
			return err
		}
	}
	if err := p.Up(ctx); err != nil {
		return err
	}
	s.Out.Success("%s", i18n.T("update.done", s.Paths.AppName))
	return nil
}

// UninstallResult lists what RunUninstallCmd removed.
type UninstallResult struct {
	ImagesRemoved bool
	DataRemoved   bool
}

// RunUninstallCmd stops the deployment and deletes its files. Images and the
// data directory are only removed after confirmation.
func RunUninstallCmd(ctx context.Context, s *Services) (UninstallResult, error) {
	var res UninstallResult
	if err := s.RequireInstalled(); err != nil {
		return res, err
	}
	if !s.Prompt.Confirm(i18n.T("uninstall.confirm", s.Paths.AppName), false) {
		return res, ErrAborted
	}
	p, err := s.Project(ctx)
	if err != nil {
		return res, err
	}
	if p.IsUp(ctx) {
		if err := p.Down(ctx); err != nil {
			return res, err
		}
	}
	if s.Prompt.Confirm(i18n.T("uninstall.confirm_images"), false) {
		if err := p.DownRemoveImages(ctx); err != nil {
			s.Out.Warn("%v", err)
		} else {
			res.ImagesRemoved = true
		}
	}
	if err := s.CronTable().Remove(ctx); err != nil {
		logging.Debugf("remove backup cron entry: %v", err)
	}
	if err := os.Remove(s.Paths.ScriptPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warnf("remove %s: %v", s.Paths.ScriptPath, err)
	}
	if err := os.RemoveAll(s.Paths.AppDir); err != nil {
		return res, err
	}
	s.Out.Success("%s", i18n.T("uninstall.removed", s.Paths.AppDir))
	if s.Prompt.Confirm(i18n.T("uninstall.confirm_data", s.Paths.DataDir), false) {
		if err := os.RemoveAll(s.Paths.DataDir); err != nil {
			return res, err
		}
		res.DataRemoved = true
		s.Out.Success("%s", i18n.T("uninstall.removed", s.Paths.DataDir))
	}
	return res, nil
}
