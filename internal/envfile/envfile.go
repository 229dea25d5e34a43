// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package envfile edits KEY = value environment files in place, keeping
// comments and unknown lines untouched.
package envfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

// ErrNotFound is returned when the env file does not exist.
var ErrNotFound = errors.New("env file not found")

var keyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidKey reports whether k is a legal variable name.
func ValidKey(k string) bool { return keyPattern.MatchString(k) }

// line is one physical line. Key is empty for blanks, free comments and
// malformed lines.
type line struct {
	raw       string
	key       string
	value     string
	commented bool
}

func parseLine(raw string) line {
	l := line{raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return l
	}
	if strings.HasPrefix(s, "#") {
		l.commented = true
		s = strings.TrimSpace(strings.TrimLeft(s, "#"))
	}
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return l
	}
	k = strings.TrimSpace(k)
	if !ValidKey(k) {
		return l
	}
	l.key = k
	l.value = Unquote(strings.TrimSpace(v))
	return l
}

// Unquote strips one pair of matching surrounding quotes.
func Unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Format renders an authoritative assignment line.
func Format(key, value string) string {
	switch {
	case strings.Contains(value, `"`) && !strings.Contains(value, "'"):
		value = "'" + value + "'"
	case value == "" || strings.ContainsAny(value, " \t#'\""):
		value = `"` + value + `"`
	}
	return key + " = " + value
}

// File is a parsed env file.
type File struct {
	lines []line
}

// Parse reads an env file from r.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		f.lines = append(f.lines, parseLine(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

// Set makes key=value authoritative. Every existing occurrence, commented or
// not, collapses into a single line at the position of the first one; a new
// key is appended.
func (f *File) Set(key, value string) {
	repl := line{raw: Format(key, value), key: key, value: value}
	out := f.lines[:0:0]
	placed := false
	for _, l := range f.lines {
		if l.key != key {
			out = append(out, l)
			continue
		}
		if !placed {
			out = append(out, repl)
			placed = true
		}
	}
	if !placed {
		out = append(out, repl)
	}
	f.lines = out
}

// Unset removes active assignments of keys. Commented lines stay.
func (f *File) Unset(keys ...string) {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := f.lines[:0:0]
	for _, l := range f.lines {
		if l.key != "" && !l.commented && drop[l.key] {
			continue
		}
		out = append(out, l)
	}
	f.lines = out
}

// Get returns the value of the last active assignment of key.
func (f *File) Get(key string) (string, bool) {
	var (
		v     string
		found bool
	)
	for _, l := range f.lines {
		if l.key == key && !l.commented {
			v, found = l.value, true
		}
	}
	return v, found
}

// Map returns all active assignments; later lines win.
func (f *File) Map() map[string]string {
	m := map[string]string{}
	for _, l := range f.lines {
		if l.key != "" && !l.commented {
			m[l.key] = l.value
		}
	}
	return m
}

// Count returns how many lines, commented or not, assign key.
func (f *File) Count(key string) int {
	n := 0
	for _, l := range f.lines {
		if l.key == key {
			n++
		}
	}
	return n
}

// Bytes renders the file with a trailing newline.
func (f *File) Bytes() []byte {
	var b bytes.Buffer
	for _, l := range f.lines {
		b.WriteString(l.raw)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// WriteFile writes the file to path, keeping the mode of an existing file.
func (f *File) WriteFile(path string) error {
	mode := os.FileMode(0o600)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	return os.WriteFile(path, f.Bytes(), mode)
}

// Update applies every pair of values to the file at path. Keys are applied
// in sorted order when appended so output is deterministic.
func Update(path string, values map[string]string) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(values) {
		if !ValidKey(k) {
			return fmt.Errorf("invalid variable name %q", k)
		}
		f.Set(k, values[k])
	}
	return f.WriteFile(path)
}

// Remove unsets keys in the file at path.
func Remove(path string, keys ...string) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	f.Unset(keys...)
	return f.WriteFile(path)
}

// LoadInto exports every valid assignment through setenv and returns them.
// Malformed names are reported to logf and skipped.
func LoadInto(path string, setenv func(k, v string) error, logf func(format string, args ...any)) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	vars := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || !ValidKey(k) {
			if logf != nil {
				logf("Invalid variable name: %s", k)
			}
			continue
		}
		v = Unquote(strings.TrimSpace(v))
		if setenv != nil {
			if err := setenv(k, v); err != nil {
				return vars, fmt.Errorf("export %s: %w", k, err)
			}
		}
		vars[k] = v
	}
	return vars, sc.Err()
}
