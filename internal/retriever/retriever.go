// Package retriever selects catalog articles that may be worth linking to
// from a source article, and turns the scored survivors into suggestions.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"interlink/internal/anchors"
	"interlink/internal/core"
	"interlink/internal/logger"
	"interlink/internal/persistence"

	"github.com/rs/zerolog"
)

// Query describes the source article candidates are retrieved for
type Query struct {
	Topic       string `json:"topic"`
	Excerpt     string `json:"source_excerpt,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	ExcludeSlug string `json:"exclude_slug,omitempty"`
	Limit       int    `json:"limit,omitempty"` // 0 means the configured default
}

// Result is the outcome of a retrieval
type Result struct {
	Skip           bool
	Reason         string
	TotalPublished int
	Candidates     []core.Candidate
}

// Retriever queries the catalog for plausible link targets
type Retriever struct {
	articles persistence.ArticleRepository
	settings core.Settings
	log      zerolog.Logger
}

// New creates a retriever over the article repository
func New(articles persistence.ArticleRepository, settings core.Settings) *Retriever {
	return &Retriever{
		articles: articles,
		settings: settings.WithDefaults(),
		log:      logger.Component("retriever"),
	}
}

// Limit resolves the requested candidate count against the default and cap.
func (r *Retriever) Limit(requested int) int {
	if requested <= 0 {
		return r.settings.SuggestionLimit
	}
	if requested > r.settings.MaxSuggestions {
		return r.settings.MaxSuggestions
	}
	return requested
}

// Retrieve returns same-category articles first, then title keyword
// matches, deduplicated by slug and truncated to the limit. Below the
// minimum catalog size nothing is retrieved and Skip is set.
func (r *Retriever) Retrieve(ctx context.Context, q Query) (*Result, error) {
	topic := strings.TrimSpace(q.Topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", core.ErrInvalidInput)
	}

	total, err := r.articles.CountPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count published articles: %w", err)
	}
	if total < r.settings.MinCatalogSize {
		r.log.Info().Int("published", total).Msg("Catalog too small, skipping internal links")
		return &Result{
			Skip:           true,
			Reason:         fmt.Sprintf("catalog too small (%d posts)", total),
			TotalPublished: total,
		}, nil
	}

	limit := r.Limit(q.Limit)

	var sameCategory []core.ArticleSummary
	if q.CategoryID != "" {
		sameCategory, err = r.articles.ListPublished(ctx, persistence.ArticleFilter{
			CategoryID:  q.CategoryID,
			ExcludeSlug: q.ExcludeSlug,
			Limit:       limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list category articles: %w", err)
		}
	}

	var titleMatches []core.ArticleSummary
	if keyword := anchors.FirstKeyword(topic); keyword != "" {
		titleMatches, err = r.articles.ListPublished(ctx, persistence.ArticleFilter{
			TitleContains: keyword,
			ExcludeSlug:   q.ExcludeSlug,
			Limit:         limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search article titles: %w", err)
		}
	}

	seen := make(map[string]bool)
	var candidates []core.Candidate
	for _, group := range [][]core.ArticleSummary{sameCategory, titleMatches} {
		for _, a := range group {
			if seen[a.Slug] || len(candidates) >= limit {
				continue
			}
			seen[a.Slug] = true
			candidates = append(candidates, core.Candidate{
				Slug:         a.Slug,
				Title:        a.Title,
				CategorySlug: a.CategorySlug,
			})
		}
	}

	r.log.Debug().
		Str("topic", topic).
		Int("same_category", len(sameCategory)).
		Int("title_matches", len(titleMatches)).
		Int("candidates", len(candidates)).
		Msg("Retrieved link candidates")

	return &Result{TotalPublished: total, Candidates: candidates}, nil
}
