// Package linking decides which roster drivers an authenticated identity
// may claim, and validates the write intents that claim or release them.
// Nothing here writes; callers execute the returned intents.
package linking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a name for comparison: trimmed, lower-cased, accents
// removed and internal whitespace collapsed to single spaces.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	// ToLower has already replaced invalid UTF-8 with U+FFFD, which the chain
	// passes through; on error the lower-cased text is compared unfolded.
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// Slug turns a name into a lower-case ASCII path segment such as
// "jose-perez".
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(Normalize(s), " ", "-") {
		if r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
