// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cron maintains the single tagged crontab entry of the backup job.
package cron

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	robfig "github.com/robfig/cron/v3"

	"github.com/toeirei/panelctl/internal/shell"
)

// Marker returns the comment tagging the backup entry of app.
func Marker(app string) string {
	return "# " + app + "-backup-service"
}

// Validate parses a five-field cron expression.
func Validate(schedule string) error {
	if _, err := robfig.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// IntervalSchedule turns an hourly interval (1-24) into a cron expression.
func IntervalSchedule(hours int) (string, error) {
	switch {
	case hours == 24:
		return "0 0 * * *", nil
	case hours >= 1 && hours < 24:
		return "0 */" + strconv.Itoa(hours) + " * * *", nil
	}
	return "", fmt.Errorf("interval must be between 1 and 24 hours, got %d", hours)
}

// Table edits the invoking user's crontab through the crontab command.
type Table struct {
	Runner shell.Runner
	Marker string
}

func (t Table) read(ctx context.Context) ([]string, error) {
	out, err := t.Runner.Output(ctx, shell.Command("crontab", "-l"))
	if err != nil {
		// crontab -l exits 1 when the user has no crontab yet.
		if shell.ExitCode(err) == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("read crontab: %w", err)
	}
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (t Table) write(ctx context.Context, lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	c := shell.Command("crontab", "-")
	c.Stdin = strings.NewReader(content)
	if _, err := t.Runner.Output(ctx, c); err != nil {
		return fmt.Errorf("write crontab: %w", err)
	}
	return nil
}

func (t Table) without(lines []string) []string {
	var out []string
	for _, l := range lines {
		if !strings.Contains(l, t.Marker) {
			out = append(out, l)
		}
	}
	return out
}

// Install replaces every tagged line with one running command on schedule.
func (t Table) Install(ctx context.Context, schedule, command string) error {
	if err := Validate(schedule); err != nil {
		return err
	}
	lines, err := t.read(ctx)
	if err != nil {
		return err
	}
	lines = append(t.without(lines), fmt.Sprintf("%s %s %s", schedule, command, t.Marker))
	return t.write(ctx, lines)
}

// Remove deletes every tagged line.
func (t Table) Remove(ctx context.Context) error {
	lines, err := t.read(ctx)
	if err != nil {
		return err
	}
	return t.write(ctx, t.without(lines))
}

// Find returns the tagged line, if any.
func (t Table) Find(ctx context.Context) (string, bool, error) {
	lines, err := t.read(ctx)
	if err != nil {
		return "", false, err
	}
	for _, l := range lines {
		if strings.Contains(l, t.Marker) {
			return l, true, nil
		}
	}
	return "", false, nil
}
