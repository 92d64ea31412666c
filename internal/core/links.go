package core

import (
	"errors"
	"time"
)

// Link types stored in the ledger
const (
	LinkInternal = "internal"
	LinkExternal = "external"
)

// Candidate is a catalog article proposed as a link target before scoring.
type Candidate struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	CategorySlug string `json:"category_slug,omitempty"`
}

// ScoredCandidate is a Candidate after relevance scoring.
type ScoredCandidate struct {
	Candidate
	RelevanceScore int      `json:"relevance_score"`
	AnchorPatterns []string `json:"anchor_patterns"`
	AntiPatterns   []string `json:"anti_patterns,omitempty"`
	SemanticIntent string   `json:"semantic_intent,omitempty"`
	Fallback       bool     `json:"fallback,omitempty"` // Produced by the deterministic extractor; score is not a real rating
}

// LinkSuggestion is an ephemeral link target offered to the caller.
type LinkSuggestion struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	AnchorPatterns []string `json:"anchor_patterns"`
	AntiPatterns   []string `json:"anti_patterns,omitempty"`
	RelevanceScore int      `json:"relevance_score"`
	SemanticIntent string   `json:"semantic_intent,omitempty"`
}

// SuggestionResult is the outcome of a suggestion session for one article.
type SuggestionResult struct {
	Skip             bool             `json:"skip_internal_links,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	TotalPublished   int              `json:"total_posts"`
	Candidates       int              `json:"candidates_considered"`
	Fallback         bool             `json:"fallback,omitempty"` // Anchors come from the deterministic extractor
	Suggestions      []LinkSuggestion `json:"suggestions"`
	Guidance         string           `json:"guidance,omitempty"`
	MaxInternalLinks int              `json:"max_internal_links,omitempty"`
}

// LinkInsertion is a caller-supplied request to wrap a phrase in a link.
type LinkInsertion struct {
	AnchorText   string   `json:"anchor_text"`
	URL          string   `json:"url"`
	TargetTitle  string   `json:"target_title,omitempty"`
	AntiPatterns []string `json:"anti_patterns,omitempty"`
	BlockID      string   `json:"block_id,omitempty"`
}

// LinkRecord is one row of the link ledger. The ledger is derived from content
// and rebuilt in full whenever an article's content is saved.
type LinkRecord struct {
	ID              string    `json:"id"`
	ArticleID       string    `json:"post_id"`
	URL             string    `json:"url"`
	AnchorText      string    `json:"anchor_text"`
	LinkType        string    `json:"link_type"`
	LinkedArticleID string    `json:"linked_post_id,omitempty"`
	Domain          string    `json:"domain,omitempty"`
	OpensNewTab     bool      `json:"opens_new_tab"`
	IsNofollow      bool      `json:"is_nofollow"`
	CreatedAt       time.Time `json:"created_at"`
}

// ErrInvalidInput is returned when a request is missing a required field.
// No work is performed when it is returned.
var ErrInvalidInput = errors.New("invalid input")
