// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup produces panel backups: database dump, staged config and
// data, a timestamped tarball, optional encryption, and delivery to a chat
// bot in upload-sized parts.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toeirei/panelctl/internal/compose"
	"github.com/toeirei/panelctl/internal/config"
	"github.com/toeirei/panelctl/internal/database"
	"github.com/toeirei/panelctl/internal/envfile"
	"github.com/toeirei/panelctl/internal/logging"
	"github.com/toeirei/panelctl/internal/shell"
	"github.com/toeirei/panelctl/internal/telegram"
)

const (
	archivePrefix = "backup_"
	archiveExt    = ".tar.gz"
	encryptedExt  = ".enc"
	// DumpFile is the SQL dump name inside the archive.
	DumpFile = "db_backup.sql"
	// SQLiteFile is the SQLite snapshot name inside the archive.
	SQLiteFile = "db.sqlite3"
	// DefaultKeep is used when BACKUP_KEEP is unset or invalid.
	DefaultKeep = 3
	// MaxErrorMessage bounds the error notification text.
	MaxErrorMessage = 1000
	timestampLayout = "20060102150405"
)

// Excluded top-level entries of the data directory.
var mirrorExcludes = []string{"xray-core", "mysql", "backup"}

// Notifier delivers backup results to the operator.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path, caption string) error
}

// ContainerLocator finds the running container of a compose service.
type ContainerLocator interface {
	ContainerID(ctx context.Context, service string) (string, error)
}

// Pipeline holds everything one backup run needs.
type Pipeline struct {
	Paths      config.Paths
	Runner     shell.Runner
	Containers ContainerLocator
	// NewNotifier builds the bot client from the env file credentials.
	NewNotifier func(token, chatID string) Notifier
	PublicIP    func(ctx context.Context) string
	Setenv      func(k, v string) error
	Now         func() time.Time
	SplitSize   int64
	StagingRoot string
}

// Report describes what a run did. Errors holds recorded non-fatal failures.
type Report struct {
	Backend      database.Backend
	Archive      string
	Encrypted    bool
	Errors       []string
	Notified     bool
	Skipped      bool
	Parts        []string
	Uploaded     []string
	UploadErrors []error
	Pruned       []string
}

// Err joins the recorded failures, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Errors)+len(r.UploadErrors))
	for _, e := range r.Errors {
		errs = append(errs, errors.New(e))
	}
	errs = append(errs, r.UploadErrors...)
	return errors.Join(errs...)
}

// TelegramNotifier adapts the bot client for the pipeline.
func TelegramNotifier(apiBase string) func(token, chatID string) Notifier {
	return func(token, chatID string) Notifier {
		return telegram.Chat{Client: telegram.NewClient(apiBase, token), ChatID: chatID}
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) publicIP(ctx context.Context) string {
	if p.PublicIP != nil {
		return p.PublicIP(ctx)
	}
	return "Unknown IP"
}

// run carries the per-invocation state.
type run struct {
	p       *Pipeline
	rep     *Report
	log     *logging.FileLogger
	vars    map[string]string
	staging string
}

func (r *run) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.rep.Errors = append(r.rep.Errors, msg)
	logging.Errorf("%s", msg)
	if r.log != nil {
		r.log.Error(msg)
	}
}

func (r *run) info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Infof("%s", msg)
	if r.log != nil {
		r.log.Info(msg)
	}
}

// Run executes one backup. Only a missing env file is fatal; every other
// failure is recorded in the report and the run continues.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var rep Report
	if _, err := os.Stat(p.Paths.EnvFile); err != nil {
		return rep, fmt.Errorf("%w: %s", envfile.ErrNotFound, p.Paths.EnvFile)
	}
	started := p.now()
	r := &run{p: p, rep: &rep}

	if p.Paths.BackupLog != "" {
		fl, err := logging.NewFileLogger(p.Paths.BackupLog, "Backup Log", started)
		if err != nil {
			logging.Warnf("backup log disabled: %v", err)
		} else {
			r.log = fl
			defer fl.Close()
		}
	}

	setenv := p.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}
	vars, err := envfile.LoadInto(p.Paths.EnvFile, setenv, func(format string, args ...any) {
		logging.Warnf(format, args...)
		if r.log != nil {
			r.log.Warnf(format, args...)
		}
	})
	if err != nil {
		return rep, err
	}
	r.vars = vars

	rep.Backend = p.detectBackend(vars)
	r.info("Detected database backend: %s", rep.Backend)

	root := p.StagingRoot
	if root == "" {
		root = os.TempDir()
	}
	r.staging = filepath.Join(root, fmt.Sprintf("%s_backup_%s", p.Paths.AppName, uuid.NewString()))
	if err := os.MkdirAll(r.staging, 0o700); err != nil {
		r.fail("Failed to create staging directory %s: %v", r.staging, err)
	} else {
		defer os.RemoveAll(r.staging)
		r.dump(ctx)
		r.stage()
		r.archive(started)
	}
	r.encrypt()

	notifier := p.notifier(vars)
	if len(rep.Errors) > 0 {
		r.notifyErrors(ctx, notifier)
		return rep, nil
	}

	keep := DefaultKeep
	if n, err := strconv.Atoi(strings.TrimSpace(vars[envfile.BackupKeep])); err == nil && n > 0 {
		keep = n
	}
	pruned, err := Prune(p.Paths.BackupDir, keep)
	if err != nil {
		logging.Warnf("prune backups: %v", err)
	}
	rep.Pruned = pruned

	if notifier == nil {
		rep.Skipped = true
		r.info("Backup service is not enabled; archive kept at %s", rep.Archive)
		return rep, nil
	}
	r.upload(ctx, notifier, started)
	return rep, nil
}

func (p *Pipeline) detectBackend(vars map[string]string) database.Backend {
	if doc, err := compose.LoadDocument(p.Paths.ComposeFile); err == nil {
		if b := database.FromImage(doc.DatabaseImage()); b != database.Unknown {
			return b
		}
	} else {
		logging.Debugf("compose file not readable: %v", err)
	}
	if raw := vars[envfile.SQLAlchemyDatabaseURL]; raw != "" {
		if t, err := database.ParseURL(raw); err == nil && t.Backend == database.SQLite {
			return database.SQLite
		}
	}
	if _, err := os.Stat(p.Paths.SQLiteFile); err == nil {
		return database.SQLite
	}
	return database.Unknown
}

func (p *Pipeline) notifier(vars map[string]string) Notifier {
	if vars[envfile.BackupServiceEnabled] != "true" || p.NewNotifier == nil {
		return nil
	}
	token, chat := vars[envfile.BackupTelegramBotKey], vars[envfile.BackupTelegramChatID]
	if token == "" || chat == "" {
		return nil
	}
	return p.NewNotifier(token, chat)
}

func (r *run) dump(ctx context.Context) {
	switch b := r.rep.Backend; b {
	case database.MariaDB, database.MySQL:
		r.dumpServer(ctx, b)
	case database.SQLite:
		r.dumpSQLite(ctx)
	default:
		r.info("No database backend detected; skipping dump")
	}
}

func (r *run) dumpServer(ctx context.Context, b database.Backend) {
	p := r.p
	password := r.vars[envfile.MySQLRootPassword]
	if password == "" {
		r.fail("%s is not set in %s", envfile.MySQLRootPassword, p.Paths.EnvFile)
		return
	}
	if p.Containers == nil {
		r.fail("%s container lookup is not available", b)
		return
	}
	id, err := p.Containers.ContainerID(ctx, b.String())
	if err != nil {
		r.fail("%s container not found or not running: %v", b, err)
		return
	}

	args := []string{"exec", "-e", "MYSQL_PWD=" + password, id}
	if b == database.MariaDB {
		args = append(args, "mariadb-dump", "-u", "root", "--all-databases",
			"--ignore-database=mysql", "--ignore-database=performance_schema",
			"--ignore-database=information_schema", "--ignore-database=sys",
			"--events", "--triggers")
	} else {
		db := r.vars[envfile.MySQLDatabase]
		if db == "" {
			r.fail("%s is not set in %s", envfile.MySQLDatabase, p.Paths.EnvFile)
			return
		}
		args = append(args, "mysqldump", "-u", "root", "--databases", db, "--events", "--triggers")
	}

	dst := filepath.Join(r.staging, DumpFile)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		r.fail("Failed to create %s: %v", dst, err)
		return
	}
	c := shell.Command("docker", args...)
	c.Stdout = out
	if r.log != nil {
		c.Stderr = r.log.Writer()
	}
	err = p.Runner.Run(ctx, c)
	out.Close()
	if err != nil {
		r.fail("%s dump failed: %v", b, err)
		return
	}
	r.info("%s dump written to %s", b, DumpFile)
}

func (r *run) dumpSQLite(ctx context.Context) {
	src := r.p.Paths.SQLiteFile
	if raw := r.vars[envfile.SQLAlchemyDatabaseURL]; raw != "" {
		if t, err := database.ParseURL(raw); err == nil && t.Backend == database.SQLite && filepath.IsAbs(t.SQLitePath) {
			src = t.SQLitePath
		}
	}
	dst := filepath.Join(r.staging, SQLiteFile)
	err := database.SnapshotSQLite(ctx, src, dst)
	if err == nil {
		return
	}
	logging.Debugf("sqlite snapshot failed, copying file: %v", err)
	os.Remove(dst)
	if err := CopyFile(src, dst); err != nil {
		r.fail("Failed to copy SQLite database %s: %v", src, err)
	}
}

func (r *run) stage() {
	paths := r.p.Paths
	for _, src := range []string{paths.EnvFile, paths.ComposeFile} {
		if err := CopyFile(src, filepath.Join(r.staging, filepath.Base(src))); err != nil {
			r.fail("Failed to copy %s: %v", src, err)
		}
	}
	dst := filepath.Join(r.staging, paths.AppName+"_data")
	if err := Mirror(paths.DataDir, dst, mirrorExcludes...); err != nil {
		r.fail("Failed to copy data directory %s: %v", paths.DataDir, err)
	}
}

func (r *run) archive(at time.Time) {
	dst := filepath.Join(r.p.Paths.BackupDir, archivePrefix+at.Format(timestampLayout)+archiveExt)
	if err := WriteArchive(r.staging, dst); err != nil {
		r.fail("Failed to create backup archive: %v", err)
		return
	}
	r.rep.Archive = dst
	r.info("Backup archive created: %s", dst)
}

func (r *run) encrypt() {
	password := r.vars[envfile.BackupEncryptionPassword]
	if password == "" || r.rep.Archive == "" {
		return
	}
	dst := r.rep.Archive + encryptedExt
	if err := EncryptFile(r.rep.Archive, dst, []byte(password)); err != nil {
		r.fail("Failed to encrypt backup archive: %v", err)
		return
	}
	if err := os.Remove(r.rep.Archive); err != nil {
		logging.Warnf("remove plain archive: %v", err)
	}
	r.rep.Archive = dst
	r.rep.Encrypted = true
}

// ErrorMessage renders the failure notification for a set of errors.
func ErrorMessage(ip string, errs []string) string {
	text := "Backup Error Notification\nServer IP: " + ip + "\nErrors:\n" + strings.Join(errs, "\n")
	return telegram.Escape(telegram.Truncate(text, MaxErrorMessage))
}

func (r *run) notifyErrors(ctx context.Context, n Notifier) {
	if n == nil {
		logging.Warnf("backup finished with %d error(s); see %s", len(r.rep.Errors), r.p.Paths.BackupLog)
		return
	}
	ip := r.p.publicIP(ctx)
	if err := n.SendMessage(ctx, ErrorMessage(ip, r.rep.Errors)); err != nil {
		logging.Errorf("send error notification: %v", err)
		return
	}
	r.rep.Notified = true
	if _, err := os.Stat(r.p.Paths.BackupLog); err == nil {
		if err := n.SendDocument(ctx, r.p.Paths.BackupLog, telegram.Escape("Backup error log")); err != nil {
			logging.Errorf("send backup log: %v", err)
		}
	}
}

// Caption renders the upload caption of one archive part.
func Caption(ip, file string, at time.Time, part, total int) string {
	var b strings.Builder
	b.WriteString("📦 *Backup Information*\n")
	fmt.Fprintf(&b, "🌐 *Server IP*: `%s`\n", telegram.EscapeCode(ip))
	fmt.Fprintf(&b, "📁 *Backup File*: `%s`\n", telegram.EscapeCode(file))
	fmt.Fprintf(&b, "⏰ *Backup Time*: `%s`", telegram.EscapeCode(at.Format(time.DateTime)))
	if total > 1 {
		b.WriteString(telegram.Escape(fmt.Sprintf("\nPart %d/%d", part, total)))
	}
	return b.String()
}

func (r *run) upload(ctx context.Context, n Notifier, at time.Time) {
	size := r.p.SplitSize
	if size <= 0 {
		size = DefaultSplitSize
	}
	parts, err := Split(r.rep.Archive, size)
	if err != nil {
		r.rep.UploadErrors = append(r.rep.UploadErrors, fmt.Errorf("split %s: %w", r.rep.Archive, err))
		return
	}
	r.rep.Parts = parts
	if len(parts) > 1 {
		defer func() {
			for _, part := range parts {
				os.Remove(part)
			}
		}()
	}

	ip := r.p.publicIP(ctx)
	for i, part := range parts {
		caption := Caption(ip, filepath.Base(part), at, i+1, len(parts))
		if err := n.SendDocument(ctx, part, caption); err != nil {
			logging.Errorf("upload %s: %v", filepath.Base(part), err)
			r.rep.UploadErrors = append(r.rep.UploadErrors, fmt.Errorf("upload %s: %w", filepath.Base(part), err))
			continue
		}
		r.rep.Uploaded = append(r.rep.Uploaded, part)
		r.info("Uploaded %s", filepath.Base(part))
	}
}
