package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks so that "Grünblau" and "Grunblau",
// or "Automóviles" and "Automoviles", compare equal.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and removes diacritics. Used for all substring rule
// matching so scraped spelling variants hit the same rule.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Transform only fails on invalid UTF-8; fall back to the raw string.
		folded = s
	}
	return strings.ToLower(folded)
}
