package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"interlink/internal/core"
	"interlink/internal/content"
)

// ExtractSentenceContext returns the sentence around the first
// case-insensitive occurrence of anchor in text. The sentence is bounded by
// . ! ? or a newline, searching at most radius characters each way. It
// returns "" when anchor does not occur.
func ExtractSentenceContext(text, anchor string, radius int) string {
	if anchor == "" {
		return ""
	}
	runes := []rune(text)
	pos := indexFold(runes, []rune(anchor))
	if pos < 0 {
		return ""
	}
	return sentenceAt(runes, pos, len([]rune(anchor)), radius)
}

// FindContext returns the context of the occurrence the Applier would link
// for ins: the first eligible occurrence outside markup and existing links,
// in the insertion's block when one is named. It returns "" when there is
// no such occurrence.
func FindContext(blocks []core.Block, ins core.LinkInsertion, radius int) string {
	if strings.TrimSpace(ins.AnchorText) == "" {
		return ""
	}
	for _, span := range content.Spans(blocks) {
		if ins.BlockID != "" && span.BlockID != ins.BlockID {
			continue
		}
		if content.IsAlreadyLinked(span.Text, ins.AnchorText) {
			return ""
		}
		start, end, ok := content.FindPhrase(span.Text, ins.AnchorText)
		if !ok {
			continue
		}
		pos := utf8.RuneCountInString(span.Text[:start])
		return sentenceAt([]rune(span.Text), pos, utf8.RuneCountInString(span.Text[start:end]), radius)
	}
	return ""
}

// sentenceAt expands the anchor at rune offset pos to its enclosing sentence.
func sentenceAt(runes []rune, pos, anchorLen, radius int) string {
	start := max(0, pos-radius)
	for i := pos - 1; i > max(0, pos-radius); i-- {
		if isBoundary(runes[i]) {
			start = i + 1
			break
		}
	}

	end := min(len(runes), pos+radius)
	for i := pos + anchorLen; i < min(len(runes), pos+radius); i++ {
		if isBoundary(runes[i]) {
			end = i + 1
			break
		}
	}
	if end < pos+anchorLen {
		end = min(len(runes), pos+anchorLen)
	}

	return strings.TrimSpace(string(runes[start:end]))
}

func isBoundary(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

// indexFold is a rune-offset, case-insensitive index of needle in haystack.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
