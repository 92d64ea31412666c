package anchors

import (
	"strings"
)

const maxPatterns = 5

// ExtractPatterns derives up to five candidate anchor phrases from a title:
// the first three content words as one phrase, then content-word bigrams,
// then single content words longer than four characters.
func ExtractPatterns(title string) []string {
	core := ContentWords(title)

	var patterns []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}

	if len(core) >= 2 {
		n := len(core)
		if n > 3 {
			n = 3
		}
		if phrase := strings.Join(core[:n], " "); runeLen(phrase) > 5 {
			add(phrase)
		}
	}

	for i := 0; i+1 < len(core); i++ {
		if bigram := core[i] + " " + core[i+1]; runeLen(bigram) > 5 {
			add(bigram)
		}
	}

	for _, w := range core {
		if runeLen(w) > 4 {
			add(w)
		}
	}

	if len(patterns) > maxPatterns {
		patterns = patterns[:maxPatterns]
	}
	return patterns
}
