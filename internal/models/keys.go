package models

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// NormalizeLoose lowercases and strips all whitespace.
func NormalizeLoose(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAlnum lowercases and keeps only ASCII letters and digits.
func NormalizeAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// DecodeTitle unescapes HTML entities and strips markup from a title that
// arrived inside an API payload.
func DecodeTitle(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// KeySet returns the loose and alnum-only keys of every non-empty input,
// deduplicated, in input order.
func KeySet(values ...string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, k := range []string{NormalizeLoose(v), NormalizeAlnum(v)} {
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
