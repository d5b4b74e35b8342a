package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case, strips diacritics and collapses whitespace so that
// "Hà Nội", "HA NOI" and "ha  noi" compare equal.
func Normalize(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			switch r {
			case 'đ', 'Đ':
				return 'd'
			}
			return r
		}),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(Fold(out)), " ")
}

// Compact is Normalize with all whitespace removed ("ha noi" -> "hanoi").
func Compact(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}
