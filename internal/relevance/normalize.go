// Package relevance ranks stop search candidates against a user's query.
// Scoring tolerates typos and German umlaut transliteration.
package relevance

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
	"Ä", "Ae",
	"Ö", "Oe",
	"Ü", "Ue",
)

// Normalize folds German umlauts to their ASCII transliteration.
// Decomposed input ("u" + combining diaeresis) is composed first so both
// spellings fold the same way. The result is composed again so that marks
// left behind by the replacement (a second diaeresis on "ä") attach to the
// new base letter, which keeps Normalize idempotent.
func Normalize(s string) string {
	return norm.NFC.String(umlauts.Replace(norm.NFC.String(s)))
}

// Key is the normalised form of a search term used for cache lookups.
func Key(term string) string {
	return Normalize(strings.ToLower(strings.TrimSpace(term)))
}
