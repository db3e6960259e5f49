// Package identity canonicalizes user identifiers into the "+<digits>"
// keys used for chat storage and hub addressing.
package identity

import (
	"sort"
	"strings"
)

// Normalize extracts the country-code-prefixed number embedded in raw and
// returns it as a canonical "+<digits>" key. Noise before the first
// occurrence of countryCode (for example an HTML-escaped plus) is dropped.
// When countryCode does not occur, the whole input is kept.
//
// The result is not validated: input without digits still yields a
// well-formed key. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw, countryCode string) string {
	s := raw
	if countryCode != "" {
		if i := strings.Index(s, countryCode); i >= 0 {
			s = s[i:]
		}
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimLeft(s, "+")
	return "+" + s
}

// PairFolder returns the storage folder shared by two identities. The
// identities are sorted first so either party resolves the same folder.
func PairFolder(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// IsBlank reports whether a canonical key carries no identifier.
func IsBlank(key string) bool {
	return strings.TrimSpace(strings.TrimLeft(key, "+")) == ""
}

// Normalizer binds Normalize to a configured country code.
type Normalizer struct {
	CountryCode string
}

func NewNormalizer(countryCode string) Normalizer {
	return Normalizer{CountryCode: countryCode}
}

func (n Normalizer) Normalize(raw string) string {
	return Normalize(raw, n.CountryCode)
}
