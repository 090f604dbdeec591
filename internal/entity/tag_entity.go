package entity

import (
	"strings"
	"unicode"
)

const MaxTagLength = 50

type TagUsage struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usage_count"`
}

// NormalizeTag lower-cases a tag, turns whitespace runs into '-' and drops any
// rune that is not a letter, digit, '-' or '_'. It returns "" for unusable input.
func NormalizeTag(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))

	out := make([]rune, 0, len(raw))
	pendingDash := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			pendingDash = len(out) > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pendingDash {
				out = append(out, '-')
				pendingDash = false
			}
			out = append(out, r)
		}
	}
	if len(out) > MaxTagLength {
		out = out[:MaxTagLength]
	}
	return strings.Trim(string(out), "-")
}

// NormalizeTags normalises every name and removes empties and duplicates, keeping first-seen order.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := NormalizeTag(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
