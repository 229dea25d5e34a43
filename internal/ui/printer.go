// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ui holds the operator-facing terminal output and prompts.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// colorPalette defines the core colors used for status output.
const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // Teal/cyan
	colorSpecial   = lipgloss.Color("208") // Orange for warnings
	colorError     = lipgloss.Color("196") // Bright red
	colorSuccess   = lipgloss.Color("40")  // Green
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorSpecial)
	infoStyle    = lipgloss.NewStyle().Foreground(colorHighlight)
	hintStyle    = lipgloss.NewStyle().Foreground(colorSubtle)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorHighlight)
)

// Printer writes colorized status lines.
type Printer struct {
	out io.Writer
}

// NewPrinter returns a Printer writing to w, or stdout when w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w}
}

// Writer returns the destination of the printer.
func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}

// Success prints a green line.
func (p *Printer) Success(format string, args ...any) { p.line(successStyle, format, args...) }

// Error prints a red line.
func (p *Printer) Error(format string, args ...any) { p.line(errorStyle, format, args...) }

// Warn prints an orange line.
func (p *Printer) Warn(format string, args ...any) { p.line(warnStyle, format, args...) }

// Info prints a cyan line.
func (p *Printer) Info(format string, args ...any) { p.line(infoStyle, format, args...) }

// Hint prints a muted line.
func (p *Printer) Hint(format string, args ...any) { p.line(hintStyle, format, args...) }

// Title prints a bold heading.
func (p *Printer) Title(format string, args ...any) { p.line(titleStyle, format, args...) }

// Plain prints an unstyled line.
func (p *Printer) Plain(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
