package retriever

import (
	"context"
	"fmt"

	"interlink/internal/core"
	"interlink/internal/linkurl"
	"interlink/internal/relevance"
)

// Suggester runs retrieval and scoring for one source article
type Suggester struct {
	retriever *Retriever
	scorer    relevance.Scorer
	urls      *linkurl.Template
}

// NewSuggester composes a retriever with a scorer
func NewSuggester(r *Retriever, scorer relevance.Scorer, urls *linkurl.Template) *Suggester {
	return &Suggester{retriever: r, scorer: scorer, urls: urls}
}

// Suggest returns link suggestions with pre-built URLs. Scoring runs once
// for the whole candidate set.
func (s *Suggester) Suggest(ctx context.Context, q Query) (*core.SuggestionResult, error) {
	retrieved, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	if retrieved.Skip {
		return &core.SuggestionResult{
			Skip:           true,
			Reason:         retrieved.Reason,
			TotalPublished: retrieved.TotalPublished,
			Suggestions:    []core.LinkSuggestion{},
		}, nil
	}

	var scored []core.ScoredCandidate
	if len(retrieved.Candidates) > 0 {
		scored = s.scorer.Score(ctx, relevance.Source{Topic: q.Topic, Excerpt: q.Excerpt}, retrieved.Candidates)
	}
	if len(scored) == 0 {
		return &core.SuggestionResult{
			Skip:           true,
			Reason:         fmt.Sprintf("no semantically relevant posts for %q", q.Topic),
			TotalPublished: retrieved.TotalPublished,
			Candidates:     len(retrieved.Candidates),
			Suggestions:    []core.LinkSuggestion{},
		}, nil
	}

	fallback := false
	suggestions := make([]core.LinkSuggestion, 0, len(scored))
	for _, c := range scored {
		fallback = fallback || c.Fallback
		suggestions = append(suggestions, core.LinkSuggestion{
			URL:            s.urls.Build(c.Slug, c.CategorySlug),
			Title:          c.Title,
			AnchorPatterns: c.AnchorPatterns,
			AntiPatterns:   c.AntiPatterns,
			RelevanceScore: c.RelevanceScore,
			SemanticIntent: c.SemanticIntent,
		})
	}

	maxLinks, guidance := Guidance(retrieved.TotalPublished)
	return &core.SuggestionResult{
		TotalPublished:   retrieved.TotalPublished,
		Candidates:       len(retrieved.Candidates),
		Fallback:         fallback,
		Suggestions:      suggestions,
		Guidance:         guidance,
		MaxInternalLinks: maxLinks,
	}, nil
}

// Guidance caps the internal links a small catalog can support. A zero
// maximum means no cap.
func Guidance(totalPublished int) (int, string) {
	switch {
	case totalPublished < 5:
		return 1, fmt.Sprintf("Very small catalog (%d posts). Use max 1 internal link.", totalPublished)
	case totalPublished < 15:
		return 2, fmt.Sprintf("Small catalog (%d posts). Use max 2 internal links.", totalPublished)
	case totalPublished < 30:
		return 3, fmt.Sprintf("Growing catalog (%d posts). Use max 3 internal links.", totalPublished)
	case totalPublished < 50:
		return 4, fmt.Sprintf("Medium catalog (%d posts). Use max 4 internal links.", totalPublished)
	}
	return 0, ""
}
