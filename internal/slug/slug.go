// Package slug turns human labels into stable URL-safe identifiers.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// scriptDigits maps subscript and superscript digit glyphs to ASCII digits so that
// "CO₂" and "CO2" share a slug.
var scriptDigits = map[rune]rune{
	'₀': '0', '₁': '1', '₂': '2', '₃': '3', '₄': '4',
	'₅': '5', '₆': '6', '₇': '7', '₈': '8', '₉': '9',
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

var (
	emphasisMarkers = strings.NewReplacer("*", "", "(", "", ")", "", "[", "", "]", "", "{", "", "}", "", "/", "", "\\", "")
	nonWordRun      = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

// NormalizeDigits replaces subscript and superscript digits with ASCII digits.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := scriptDigits[r]; ok {
			return d
		}
		return r
	}, s)
}

// Slugify lower-cases s, folds script digits and accents, drops emphasis, bracket and
// slash characters and collapses every other run of non-word characters to a hyphen.
func Slugify(s string) string {
	t := transform.Chain(
		runes.Map(func(r rune) rune {
			if d, ok := scriptDigits[r]; ok {
				return d
			}
			return r
		}),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = NormalizeDigits(s)
	}

	folded = strings.ToLower(folded)
	folded = emphasisMarkers.Replace(folded)
	folded = nonWordRun.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}
