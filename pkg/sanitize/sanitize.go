package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup and control characters before text is stored.
// Both methods are idempotent.
type Sanitizer struct {
	text *bluemonday.Policy
	rich *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{
		text: bluemonday.StrictPolicy(),
		rich: bluemonday.UGCPolicy(),
	}
}

// SanitizeText removes every tag and returns plain, unescaped text. Used for
// titles, tags and categories.
func (s *Sanitizer) SanitizeText(in string) string {
	out := s.plain(in)
	// Unescaping can expose entity-encoded markup; clean until stable.
	for i := 0; i < maxTextPasses; i++ {
		next := s.plain(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

const maxTextPasses = 8

func (s *Sanitizer) plain(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(stripControl(in))))
}

// SanitizeRich keeps user-generated-content safe formatting. Used for message bodies.
func (s *Sanitizer) SanitizeRich(in string) string {
	return s.rich.Sanitize(stripControl(in))
}

func stripControl(in string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, in)
}
