// Package anchors decides whether an anchor phrase is worth linking and
// derives fallback phrases from a title when no better source exists.
package anchors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rejection reasons
const (
	ReasonTooFewWords  = "fewer than 2 words"
	ReasonTooShort     = "shorter than 8 characters"
	ReasonGeneric      = "generic phrase"
	ReasonProperNounly = "bare proper noun"
)

// minAnchorLength is measured in characters after trimming.
const minAnchorLength = 8

// DefaultGenericPhrases are phrases too broad to identify a single target.
var DefaultGenericPhrases = []string{
	"golf tips", "golf rules", "golf equipment", "golf courses", "golf clubs",
	"golf balls", "golf game", "golf swing", "the masters", "the open",
	"the pga", "pga tour", "ball striking", "club head", "swing speed",
	"how to golf", "golf basics", "golf guide", "golf help", "learn golf",
	"play golf", "playing golf", "tips and tricks", "best practices",
	"common mistakes", "quick tips", "easy tips", "simple tips",
}

// Filter applies the anchor quality rules.
type Filter struct {
	generic map[string]bool
}

// NewFilter returns a Filter using the default generic list plus extra.
func NewFilter(extra ...string) *Filter {
	f := &Filter{generic: make(map[string]bool, len(DefaultGenericPhrases)+len(extra))}
	for _, p := range DefaultGenericPhrases {
		f.generic[Normalize(p)] = true
	}
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			f.generic[Normalize(p)] = true
		}
	}
	return f
}

var defaultFilter = NewFilter()

// Reason returns why anchor fails the quality rules, or "" when it passes.
func (f *Filter) Reason(anchor string) string {
	words := strings.Fields(anchor)
	if len(words) < 2 {
		return ReasonTooFewWords
	}

	trimmed := Normalize(strings.TrimSpace(anchor))
	if utf8.RuneCountInString(trimmed) < minAnchorLength {
		return ReasonTooShort
	}
	if f.generic[trimmed] {
		return ReasonGeneric
	}

	if len(words) < 3 {
		allCapitalized := true
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			if !unicode.IsUpper(r) {
				allCapitalized = false
				break
			}
		}
		if allCapitalized {
			return ReasonProperNounly
		}
	}
	return ""
}

// IsQuality reports whether anchor passes the quality rules.
func (f *Filter) IsQuality(anchor string) bool {
	return f.Reason(anchor) == ""
}

// FilterQuality returns the anchors that pass, in their original order.
func (f *Filter) FilterQuality(anchors []string) []string {
	var out []string
	for _, a := range anchors {
		if f.IsQuality(a) {
			out = append(out, a)
		}
	}
	return out
}

// IsQuality applies the default rules.
func IsQuality(anchor string) bool {
	return defaultFilter.IsQuality(anchor)
}

// FilterQuality applies the default rules to a list.
func FilterQuality(anchors []string) []string {
	return defaultFilter.FilterQuality(anchors)
}
