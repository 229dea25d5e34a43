// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/toeirei/panelctl/internal/backup"
	"github.com/toeirei/panelctl/internal/cron"
	"github.com/toeirei/panelctl/internal/envfile"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/logging"
)

// Pipeline builds the backup pipeline for the deployment.
func (s *Services) Pipeline(ctx context.Context) *backup.Pipeline {
	p := &backup.Pipeline{
		Paths:       s.Paths,
		Runner:      s.Runner,
		NewNotifier: backup.TelegramNotifier(s.Settings.Telegram.APIBase),
		PublicIP:    s.PublicIP,
		Now:         s.now,
		SplitSize:   int64(s.Settings.Backup.SplitSizeMB) * 1024 * 1024,
		StagingRoot: s.Settings.Backup.StagingRoot,
	}
	if s.Notifier != nil {
		p.NewNotifier = s.Notifier
	}
	if proj, err := s.Project(ctx); err == nil {
		p.Containers = proj
	} else {
		logging.Warnf("compose unavailable, database dumps will fail: %v", err)
	}
	return p
}

// RunBackupCmd runs one backup and prints its outcome.
func RunBackupCmd(ctx context.Context, s *Services) (backup.Report, error) {
	rep, err := s.Pipeline(ctx).Run(ctx)
	if err != nil {
		return rep, err
	}
	switch {
	case len(rep.Errors) > 0:
		for _, e := range rep.Errors {
			s.Out.Error("%s", e)
		}
		if rep.Notified {
			s.Out.Warn("%s", i18n.T("backup.errors_notified"))
		}
	case rep.Skipped:
		s.Out.Success("%s", i18n.T("backup.saved", rep.Archive))
	default:
		for _, e := range rep.UploadErrors {
			s.Out.Error("%v", e)
		}
		s.Out.Success("%s", i18n.T("backup.uploaded", len(rep.Uploaded), len(rep.Parts)))
	}
	return rep, nil
}

// BackupServiceAction is the operator's choice for an existing schedule.
type BackupServiceAction string

const (
	ActionReconfigure BackupServiceAction = "reconfigure"
	ActionRemove      BackupServiceAction = "remove"
	ActionKeep        BackupServiceAction = "keep"
)

// BackupServiceResult records what RunBackupServiceCmd changed.
type BackupServiceResult struct {
	Action   BackupServiceAction
	Schedule string
	Report   *backup.Report
}

var chatIDPattern = regexp.MustCompile(`^-?\d+$`)

// ParseSchedule turns an interval in hours (1-24) or a cron expression into
// a cron schedule.
func ParseSchedule(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if h, err := strconv.Atoi(answer); err == nil {
		return cron.IntervalSchedule(h)
	}
	if err := cron.Validate(answer); err != nil {
		return "", err
	}
	return answer, nil
}

// RunBackupServiceCmd configures, replaces or removes the scheduled backup
// and runs a first backup after configuring.
func RunBackupServiceCmd(ctx context.Context, s *Services) (BackupServiceResult, error) {
	res := BackupServiceResult{Action: ActionReconfigure}
	if err := s.RequireInstalled(); err != nil {
		return res, err
	}
	env, err := envfile.Load(s.Paths.EnvFile)
	if err != nil {
		return res, err
	}
	table := s.CronTable()

	if v, _ := env.Get(envfile.BackupServiceEnabled); v == "true" {
		sched, _ := env.Get(envfile.BackupCronSchedule)
		s.Out.Info("%s", i18n.T("backup_service.current", sched))
		choice := s.Prompt.Choose(i18n.T("backup_service.prompt_action"),
			[]string{string(ActionReconfigure), string(ActionRemove), string(ActionKeep)}, string(ActionKeep))
		res.Action = BackupServiceAction(choice)
		switch res.Action {
		case ActionKeep:
			return res, nil
		case ActionRemove:
			if err := table.Remove(ctx); err != nil {
				return res, err
			}
			if err := envfile.Remove(s.Paths.EnvFile, envfile.BackupServiceKeys...); err != nil {
				return res, err
			}
			s.Out.Success("%s", i18n.T("backup_service.removed"))
			return res, nil
		}
	}

	token := s.Prompt.AskRequired(i18n.T("backup_service.prompt_token"))
	if token == "" {
		return res, ErrAborted
	}
	var chatID string
	for {
		chatID = s.Prompt.AskRequired(i18n.T("backup_service.prompt_chat_id"))
		if chatID == "" {
			return res, ErrAborted
		}
		if chatIDPattern.MatchString(chatID) {
			break
		}
		s.Out.Error("%s", i18n.T("backup_service.invalid_chat_id"))
	}
	var schedule string
	for {
		schedule, err = ParseSchedule(s.Prompt.Ask(i18n.T("backup_service.prompt_interval"), "24"))
		if err == nil {
			break
		}
		s.Out.Error("%v", err)
	}
	res.Schedule = schedule

	if err := table.Remove(ctx); err != nil {
		return res, err
	}
	if err := envfile.Remove(s.Paths.EnvFile, envfile.BackupServiceKeys...); err != nil {
		return res, err
	}
	err = envfile.Update(s.Paths.EnvFile, map[string]string{
		envfile.BackupServiceEnabled: "true",
		envfile.BackupTelegramBotKey: token,
		envfile.BackupTelegramChatID: chatID,
		envfile.BackupCronSchedule:   schedule,
	})
	if err != nil {
		return res, err
	}
	command := fmt.Sprintf("%s backup", s.Paths.ScriptPath)
	if err := table.Install(ctx, schedule, command); err != nil {
		return res, err
	}
	s.Out.Success("%s", i18n.T("backup_service.installed", schedule))

	rep, err := RunBackupCmd(ctx, s)
	if err != nil {
		return res, err
	}
	res.Report = &rep
	return res, nil
}

// RunBackupDecryptCmd decrypts an encrypted archive. An empty password is
// read from the env file, then prompted for.
func RunBackupDecryptCmd(ctx context.Context, s *Services, src, dst, password string) (string, error) {
	if password == "" {
		if env, err := envfile.Load(s.Paths.EnvFile); err == nil {
			password, _ = env.Get(envfile.BackupEncryptionPassword)
		}
	}
	if password == "" {
		var err error
		if password, err = s.Prompt.Secret(i18n.T("backup.prompt_password")); err != nil {
			return "", err
		}
	}
	if dst == "" {
		dst = strings.TrimSuffix(src, ".enc")
		if dst == src {
			dst = src + ".dec"
		}
	}
	if err := backup.DecryptFile(src, dst, []byte(password)); err != nil {
		return "", err
	}
	s.Out.Success("%s", i18n.T("backup.decrypted", filepath.Base(dst)))
	return dst, nil
}
