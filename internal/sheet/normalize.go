package sheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after canonical decomposition, so
// "Descrição" and "DESCRICAO" normalize to the same text.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader reduces a header or field name to a canonical matching
// key: diacritics stripped, upper-cased, and every run of whitespace or
// punctuation collapsed away. Spreadsheet headers are typed by people;
// callers' field names follow code conventions. Neither side is required
// to match the other exactly.
func NormalizeHeader(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToUpper(out)
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
