// Package slug turns document names into URL-safe identifiers and assigns
// them uniquely within one build.
package slug

import (
	"strings"
	"unicode"
)

// Fallback is used when a name slugifies to nothing.
const Fallback = "untitled"

// Slugify lowercases s, drops every rune that is not a letter, digit,
// whitespace or hyphen, and joins the remaining words with single hyphens.
// It is idempotent: Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}
