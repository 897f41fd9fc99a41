// Package slug derives URL slugs from merchant names, including Vietnamese ones.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make returns the slug for s: "Phở Đức Béo 24/7" becomes "pho-duc-beo-24-7".
//
// Letters are lowercased and stripped of diacritics. đ has no decomposition
// in Unicode and is mapped to d by hand. Every run of other characters
// becomes a single hyphen, with none at either end.
func Make(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "d").Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			hyphen = false
		case b.Len() > 0 && !hyphen:
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
