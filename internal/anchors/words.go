package anchors

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// StopWords are dropped when deriving phrases or keywords from a title.
var StopWords = map[string]bool{
	"a": true, "an": true, "the": true, "how": true, "to": true, "what": true,
	"is": true, "are": true, "was": true, "were": true, "for": true, "of": true,
	"in": true, "on": true, "at": true, "by": true, "with": true, "your": true,
	"my": true, "our": true, "this": true, "that": true, "these": true,
	"those": true, "and": true, "or": true, "but": true, "so": true,
	"complete": true, "guide": true, "ultimate": true, "best": true, "top": true,
	"tips": true, "tricks": true, "beginners": true, "beginner": true,
	"advanced": true, "simple": true, "easy": true, "quick": true,
}

var lower = cases.Lower(language.Und)

// Normalize lowercases s and composes it to NFC so visually equal strings
// compare equal.
func Normalize(s string) string {
	return lower.String(norm.NFC.String(s))
}

// Words splits s into lowercased words. Anything that is not a letter, digit
// or underscore separates words.
func Words(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// ContentWords returns the words of s that are not stop words and are longer
// than two characters.
func ContentWords(s string) []string {
	var out []string
	for _, w := range Words(s) {
		if StopWords[w] || runeLen(w) <= 2 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// FirstKeyword returns the first significant word of s, or its first word
// when none qualifies.
func FirstKeyword(s string) string {
	words := Words(s)
	for _, w := range words {
		if !StopWords[w] && runeLen(w) > 2 {
			return w
		}
	}
	if len(words) > 0 {
		return words[0]
	}
	return ""
}

func runeLen(s string) int {
	return len([]rune(s))
}
