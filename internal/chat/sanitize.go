package chat

import (
	"regexp"
	"strings"
	"unicode"
)

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips HTML-style markup and control sequences from free text
// and trims surrounding whitespace. Sanitizing already-sanitized text
// yields the same text.
func Sanitize(s string) string {
	// Re-run until no tags remain so nested fragments like "<scr<b>ipt>"
	// cannot reassemble into markup after a single pass.
	for {
		stripped := markupPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
