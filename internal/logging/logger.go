// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger. Callers should use the helper functions
// below rather than reaching for L directly.
var L = clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: false})

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...interface{}) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...interface{}) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...interface{}) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...interface{}) {
	L.Error(fmt.Sprintf(format, v...))
}

// SetLevel parses a level name (debug, info, warn, error) and applies it to L.
// Unknown names leave the level untouched and return an error.
func SetLevel(name string) error {
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	L.SetLevel(lvl)
	return nil
}

// FileLogger is a plain-text logger bound to a file on disk.
type FileLogger struct {
	*clog.Logger
	f    *os.File
	Path string
}

// NewFileLogger truncates path and writes a "<title> - <time>" header line.
func NewFileLogger(path, title string, now time.Time) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%s - %s\n", title, now.Format(time.RFC1123)); err != nil {
		_ = f.Close()
		return nil, err
	}
	l := clog.NewWithOptions(f, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           clog.DebugLevel,
	})
	return &FileLogger{Logger: l, f: f, Path: path}, nil
}

// Writer exposes the underlying file so command output can be appended.
func (l *FileLogger) Writer() io.Writer { return l.f }

// Close flushes and closes the file.
func (l *FileLogger) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}
