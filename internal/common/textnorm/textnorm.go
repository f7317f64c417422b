// Package textnorm folds free text for pattern matching and canonicalizes
// case identifiers.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses runs of whitespace to a
// single space, so "Residência  POR prazo" becomes "residencia por prazo".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Affirmative reports whether a form value reads as a yes answer.
func Affirmative(s string) bool {
	switch Fold(s) {
	case "sim", "s", "yes", "y", "true", "1", "x":
		return true
	default:
		return false
	}
}
