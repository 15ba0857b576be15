package quote

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// canonical composes to NFC and folds typographic quotes and dashes to ASCII.
var canonical = transform.Chain(norm.NFC, runes.Map(func(r rune) rune {
	switch r {
	case '“', '”':
		return '"'
	case '‘', '’':
		return '\''
	case '–', '—':
		return '-'
	}
	return r
}))

// Normalize returns the canonical form of s used for storage and comparison.
// Surrounding whitespace is trimmed, typographic punctuation is mapped to its
// ASCII equivalent, the ellipsis glyph becomes "..." and runs of spaces
// collapse to one. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if out, _, err := transform.String(canonical, s); err == nil {
		s = out
	}
	s = strings.ReplaceAll(s, "…", "...")

	if !strings.Contains(s, "  ") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' {
			if space {
				continue
			}
			space = true
		} else {
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
