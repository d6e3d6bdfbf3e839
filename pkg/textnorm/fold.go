// Package textnorm folds free text into comparable keys.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks, so "Endereço" becomes "Endereco".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases, strips diacritics and collapses whitespace runs into sep.
func Fold(s, sep string) string {
	s = strings.ToLower(StripDiacritics(s))
	return strings.Join(strings.Fields(s), sep)
}
