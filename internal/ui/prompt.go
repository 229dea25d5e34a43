// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Songmu/prompter"
	"golang.org/x/term"
)

// ErrNoTerminal is returned when a hidden prompt is requested without a TTY.
var ErrNoTerminal = errors.New("standard input is not a terminal")

// Prompter asks the operator for input.
type Prompter interface {
	// Ask returns the trimmed answer, or def on empty input.
	Ask(question, def string) string
	// AskRequired repeats the question until a non-empty answer is given.
	AskRequired(question string) string
	// Secret reads input without echo. Empty input is allowed.
	Secret(question string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(question string, def bool) bool
	// Choose restricts the answer to one of choices.
	Choose(question string, choices []string, def string) string
}

// TerminalPrompter reads from the controlling terminal.
type TerminalPrompter struct{}

// Ask implements Prompter.
func (TerminalPrompter) Ask(question, def string) string {
	return strings.TrimSpace(prompter.Prompt(question, def))
}

// AskRequired implements Prompter.
func (t TerminalPrompter) AskRequired(question string) string {
	for {
		if v := t.Ask(question, ""); v != "" {
			return v
		}
	}
}

// Secret implements Prompter.
func (TerminalPrompter) Secret(question string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}
	fmt.Fprintf(os.Stderr, "%s: ", question)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Confirm implements Prompter.
func (TerminalPrompter) Confirm(question string, def bool) bool {
	return prompter.YN(question, def)
}

// Choose implements Prompter.
func (TerminalPrompter) Choose(question string, choices []string, def string) string {
	return prompter.Choose(question, choices, def)
}

// ScriptedPrompter replays canned answers in order. Once the script is
// exhausted every question receives its default. Used by tests.
type ScriptedPrompter struct {
	Answers []string
	Asked   []string
}

func (s *ScriptedPrompter) next(question string) (string, bool) {
	s.Asked = append(s.Asked, question)
	if len(s.Answers) == 0 {
		return "", false
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, true
}

// Ask implements Prompter.
func (s *ScriptedPrompter) Ask(question, def string) string {
	a, ok := s.next(question)
	if !ok || strings.TrimSpace(a) == "" {
		return def
	}
	return strings.TrimSpace(a)
}

// AskRequired implements Prompter. Empty scripted answers are skipped like a
// real operator pressing enter.
func (s *ScriptedPrompter) AskRequired(question string) string {
	for {
		a, ok := s.next(question)
		if !ok {
			return ""
		}
		if v := strings.TrimSpace(a); v != "" {
			return v
		}
	}
}

// Secret implements Prompter.
func (s *ScriptedPrompter) Secret(question string) (string, error) {
	a, _ := s.next(question)
	return strings.TrimSpace(a), nil
}

// Confirm implements Prompter.
func (s *ScriptedPrompter) Confirm(question string, def bool) bool {
	a, ok := s.next(question)
	if !ok || a == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Choose implements Prompter.
func (s *ScriptedPrompter) Choose(question string, choices []string, def string) string {
	a, ok := s.next(question)
	if !ok {
		return def
	}
	for _, c := range choices {
		if c == a {
			return a
		}
	}
	return def
}
