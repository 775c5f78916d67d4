// Package textx provides small text utilities for client-supplied strings.
package textx

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText removes control characters except tab/newline/CR, drops
// invalid UTF-8 and trims spaces.
func SanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SingleLine sanitizes s and folds every run of whitespace into one space, so a
// value interpolated into a line-oriented prompt cannot start a new line.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(SanitizeText(s)), " ")
}

// Truncate caps s at maxBytes without splitting a rune. maxBytes <= 0 disables it.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
