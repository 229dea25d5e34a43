// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package telegram

import "strings"

var markdownV2 = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

var codeSpan = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// Escape escapes text for use outside entities in MarkdownV2.
func Escape(s string) string { return markdownV2.Replace(s) }

// EscapeCode escapes text for use inside a `code` or ```pre``` entity.
func EscapeCode(s string) string { return codeSpan.Replace(s) }

// TruncatedMarker is appended to messages cut by Truncate.
const TruncatedMarker = "...\n[Message truncated]"

// Truncate shortens s to at most max runes. Cut messages keep max-50 runes
// of content followed by TruncatedMarker.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	keep := max - 50
	if keep < 0 {
		keep = 0
	}
	return string(r[:keep]) + TruncatedMarker
}
