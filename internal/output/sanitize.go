package output

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// SanitizeTerminal makes a string safe to print to an interactive terminal
// by replacing control characters with visible escape sequences.
// Tabs and newlines are kept.
//   - "hi\x1b[31mred" -> "hi\\x1b[31mred"
//   - "bad:\xff"      -> "bad:\\xff"
//   - "a\tb\nc"       -> "a\tb\nc"
func SanitizeTerminal(s string) string {
	return sanitize(s, true)
}

// SanitizeField is SanitizeTerminal for a single table cell: tabs and
// newlines are escaped too, so a cell can never split a row.
//   - "a\tb\nc" -> "a\\x09b\\x0ac"
func SanitizeField(s string) string {
	return sanitize(s, false)
}

func sanitize(s string, keepLayout bool) string {
	clean := func(r rune, size int) bool {
		if r == utf8.RuneError && size == 1 {
			return false
		}
		if r == '\n' || r == '\t' {
			return keepLayout
		}
		return !unicode.IsControl(r)
	}

	// fast path: nothing to rewrite
	idx := 0
	for idx < len(s) {
		r, size := utf8.DecodeRuneInString(s[idx:])
		if !clean(r, size) {
			break
		}
		idx += size
	}
	if idx == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteString(s[:idx])
	for idx < len(s) {
		r, size := utf8.DecodeRuneInString(s[idx:])
		switch {
		case r == utf8.RuneError && size == 1:
			// invalid bytes are kept visible, never interpreted
			appendEscaped(&b, 'x', uint32(s[idx]), 2)
		case clean(r, size):
			b.WriteString(s[idx : idx+size])
		default:
			appendEscapedRune(&b, r)
		}
		idx += size
	}
	return b.String()
}

// appendEscapedRune writes r as \xHH, \uHHHH or \UHHHHHHHH depending on its size
func appendEscapedRune(b *strings.Builder, r rune) {
	switch {
	case r <= 0xFF:
		appendEscaped(b, 'x', uint32(r), 2)
	case r <= 0xFFFF:
		appendEscaped(b, 'u', uint32(r), 4)
	default:
		appendEscaped(b, 'U', uint32(r), 8)
	}
}

func appendEscaped(b *strings.Builder, kind byte, v uint32, digits int) {
	b.WriteString(`\\`)
	b.WriteByte(kind)
	for shift := (digits - 1) * 4; shift >= 0; shift -= 4 {
		b.WriteByte(hexDigits[(v>>uint(shift))&0x0f])
	}
}
