package relevance

import (
	"context"

	"interlink/internal/core"
)

// Scorer defines the interface for relevance scoring implementations
type Scorer interface {
	// Score rates every candidate against the source in a single pass and
	// returns the survivors in input order. Implementations never fail: an
	// unavailable judge degrades to fallback anchors.
	Score(ctx context.Context, source Source, candidates []core.Candidate) []core.ScoredCandidate
}

// Source describes the article links are being chosen for
type Source struct {
	Topic   string `json:"topic"`
	Excerpt string `json:"excerpt,omitempty"`
}

// evaluation is the judge's verdict on one candidate
type evaluation struct {
	Score   float64  `json:"score"`
	Anchors []string `json:"anchors"`
	Anti    []string `json:"anti"`
	Intent  string   `json:"intent"`
}

// FallbackScorer keeps every candidate with anchors extracted from its title.
// It is used when no judgment service is configured.
type FallbackScorer struct {
	settings core.Settings
}

// NewFallbackScorer creates a deterministic scorer
func NewFallbackScorer(settings core.Settings) *FallbackScorer {
	return &FallbackScorer{settings: settings.WithDefaults()}
}

func (f *FallbackScorer) Score(ctx context.Context, source Source, candidates []core.Candidate) []core.ScoredCandidate {
	return fallback(candidates, f.settings)
}
