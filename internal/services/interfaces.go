package services

import (
	"context"

	"interlink/internal/backfill"
	"interlink/internal/core"
	"interlink/internal/linker"
	"interlink/internal/urlcheck"
)

// LinkingService is the entry point shared by the CLI and the HTTP API
type LinkingService interface {
	SuggestLinks(ctx context.Context, req SuggestRequest) (*core.SuggestionResult, error)
	GetArticleForLinking(ctx context.Context, articleID string) (*ArticleForLinking, error)
	ApplyLinks(ctx context.Context, articleID string, insertions []core.LinkInsertion) (*linker.Report, error)
	PreviewLinks(ctx context.Context, articleID string, insertions []core.LinkInsertion) (*linker.Plan, error)
	RemoveInternalLinks(ctx context.Context, articleID string) (int, error)
	RemoveLink(ctx context.Context, linkID string) (bool, error)
	CleanupInternalLinks(ctx context.Context, req CleanupRequest) ([]linker.RemovalResult, error)
	SyncLedger(ctx context.Context, articleID string) ([]core.LinkRecord, error)
	ListLinks(ctx context.Context, articleID string) ([]core.LinkRecord, error)
	PostsNeedingLinks(ctx context.Context, limit int) (*backfill.Result, error)
	ValidateURLs(ctx context.Context, urls []string) ([]urlcheck.Result, error)
}

// SuggestRequest describes the article to find link targets for. When
// ArticleID is set, empty fields are filled from the stored article.
type SuggestRequest struct {
	ArticleID   string `json:"post_id,omitempty"`
	Topic       string `json:"topic"`
	Excerpt     string `json:"excerpt,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	ExcludeSlug string `json:"exclude_slug,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// CleanupRequest selects articles for internal link removal.
type CleanupRequest struct {
	Slugs []string `json:"slugs,omitempty"`
	All   bool     `json:"all,omitempty"`
}

// ArticleForLinking is the projection an editor needs to pick anchors.
type ArticleForLinking struct {
	ID         string       `json:"id"`
	Slug       string       `json:"slug"`
	Title      string       `json:"title"`
	Excerpt    string       `json:"excerpt"`
	CategoryID string       `json:"category_id,omitempty"`
	Content    []core.Block `json:"content"`
}
