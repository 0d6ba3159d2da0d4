package clinical

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize folds a symptom label so that "Poliüri", " poliuri " and "POLİÜRİ"
// compare equal: lower case, no diacritics, dotless i folded, single spaces.
func Normalize(s string) string {
	// Transformers keep state, so the chain is built per call.
	fold := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == 'ı' {
				return 'i'
			}
			return r
		}),
		norm.NFC,
	)

	folded, _, err := transform.String(fold, lower.String(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}
