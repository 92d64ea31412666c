package core

import "time"

// Settings carries every tunable of the linking pipeline. It is built once
// (usually from configuration) and passed to each component's constructor.
type Settings struct {
	URLPattern           string        // Internal URL template with {slug} and optional {category}
	SuggestionLimit      int           // Default candidate count
	MaxSuggestions       int           // Hard cap on candidate count
	MinCatalogSize       int           // Below this many published articles, linking is skipped
	MinRelevanceScore    int           // Scores below this are discarded
	ContextRadius        int           // Max characters scanned each side of an anchor for a sentence boundary
	ContextSnippetLength int           // Context characters sent for validation
	ScoringTimeout       time.Duration // Bound on the scoring request
	ValidationTimeout    time.Duration // Bound on the context validation request
	ScoringMaxTokens     int32
	ValidationMaxTokens  int32
	GenericAnchors       []string // Extra phrases rejected by the quality filter
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		URLPattern:           "/blog/{slug}",
		SuggestionLimit:      8,
		MaxSuggestions:       15,
		MinCatalogSize:       3,
		MinRelevanceScore:    8,
		ContextRadius:        150,
		ContextSnippetLength: 100,
		ScoringTimeout:       30 * time.Second,
		ValidationTimeout:    30 * time.Second,
		ScoringMaxTokens:     800,
		ValidationMaxTokens:  100,
	}
}

// WithDefaults fills zero fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.URLPattern == "" {
		s.URLPattern = d.URLPattern
	}
	if s.SuggestionLimit <= 0 {
		s.SuggestionLimit = d.SuggestionLimit
	}
	if s.MaxSuggestions <= 0 {
		s.MaxSuggestions = d.MaxSuggestions
	}
	if s.MinCatalogSize <= 0 {
		s.MinCatalogSize = d.MinCatalogSize
	}
	if s.MinRelevanceScore <= 0 {
		s.MinRelevanceScore = d.MinRelevanceScore
	}
	if s.ContextRadius <= 0 {
		s.ContextRadius = d.ContextRadius
	}
	if s.ContextSnippetLength <= 0 {
		s.ContextSnippetLength = d.ContextSnippetLength
	}
	if s.ScoringTimeout <= 0 {
		s.ScoringTimeout = d.ScoringTimeout
	}
	if s.ValidationTimeout <= 0 {
		s.ValidationTimeout = d.ValidationTimeout
	}
	if s.ScoringMaxTokens <= 0 {
		s.ScoringMaxTokens = d.ScoringMaxTokens
	}
	if s.ValidationMaxTokens <= 0 {
		s.ValidationMaxTokens = d.ValidationMaxTokens
	}
	return s
}
