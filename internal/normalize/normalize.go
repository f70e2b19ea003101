// Package normalize provides utilities for normalizing and sanitizing catalog text.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ISBN reduces an ISBN to its digits and check character.
// "978-0-7432-7356-5" -> "9780743273565", "0-306-40615-x" -> "030640615X".
func ISBN(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range sanitizeString(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// LooksLikeISBN reports whether a query is plausibly an ISBN rather than words.
func LooksLikeISBN(raw string) bool {
	n := ISBN(raw)
	if len(n) < 4 {
		return false
	}
	for _, r := range raw {
		if unicode.IsLetter(r) && r != 'x' && r != 'X' {
			return false
		}
	}
	return true
}

// Text trims a free-text field and collapses internal whitespace runs.
// "  The   Great Gatsby " -> "The Great Gatsby".
func Text(raw string) string {
	return strings.Join(strings.Fields(sanitizeString(raw)), " ")
}

// Fold lowercases a string and strips diacritics for accent-insensitive matching.
// "Brontë" -> "bronte", "GARCÍA Márquez" -> "garcia marquez".
func Fold(raw string) string {
	// A transform.Chain carries state, so build one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, Text(raw))
	if err != nil {
		return strings.ToLower(Text(raw))
	}
	return strings.ToLower(folded)
}

// sanitizeString removes null bytes, which can cause issues in databases and
// JSON parsing.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
