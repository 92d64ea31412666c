package linker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interlink/internal/content"
	"interlink/internal/core"
	"interlink/internal/ledger"
	"interlink/internal/linkurl"
	"interlink/internal/persistence"
)

// Removal scopes reported to analytics
const (
	scopeAll    = "all"
	scopeSingle = "single"
)

// RemovalResult is the outcome of stripping internal links from one article.
type RemovalResult struct {
	ArticleID string `json:"post_id"`
	Slug      string `json:"slug,omitempty"`
	Removed   int    `json:"removed"`
	Error     string `json:"error,omitempty"`
}

// RemoveInternalLinks replaces every internal anchor tag in the article
// with its inner text and rebuilds the ledger. Nothing is written when the
// article has no internal anchor tags.
func (l *Linker) RemoveInternalLinks(ctx context.Context, articleID string) (int, error) {
	if strings.TrimSpace(articleID) == "" {
		return 0, fmt.Errorf("%w: post id is required", ErrInvalidInput)
	}
	article, err := l.db.Articles().Get(ctx, articleID)
	if err != nil {
		return 0, fmt.Errorf("failed to load article %s: %w", articleID, err)
	}

	blocks := core.CloneBlocks(article.Content)
	removed := 0
	for _, span := range content.Spans(blocks) {
		text, n := content.Unwrap(span.Text, func(tag content.AnchorTag) bool {
			return linkurl.IsInternal(tag.Href)
		})
		if n > 0 {
			content.SetSpan(blocks, span, text)
			removed += n
		}
	}
	if removed == 0 {
		return 0, nil
	}

	err = persistence.WithTx(ctx, l.db, func(tx persistence.Transaction) error {
		if err := tx.Articles().UpdateContent(ctx, articleID, blocks, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to save content: %w", err)
		}
		if _, err := tx.Links().DeleteInternalByArticle(ctx, articleID); err != nil {
			return fmt.Errorf("failed to delete internal ledger rows: %w", err)
		}
		// Internal button targets survive the unwrap and are re-tracked here.
		_, err := l.ledger.Sync(ctx, tx, articleID, blocks)
		return err
	})
	if err != nil {
		return 0, err
	}

	l.metrics.RecordRemovals(removed)
	l.analytics.TrackLinksRemoved(ctx, articleID, removed, scopeAll)
	l.log.Info().Str("article_id", articleID).Int("removed", removed).Msg("Internal links removed")
	return removed, nil
}

// RemoveLink removes the single tracked link id from its article's content
// and deletes that ledger row. The tag matching both the recorded URL and
// anchor text is preferred; otherwise the first tag with the URL is used.
// Rows recorded from a button target clear that button's url instead.
// It reports whether the link was found in the content. The row alone is
// deleted only when the content no longer carries its URL.
func (l *Linker) RemoveLink(ctx context.Context, linkID string) (bool, error) {
	if strings.TrimSpace(linkID) == "" {
		return false, fmt.Errorf("%w: link id is required", ErrInvalidInput)
	}
	link, err := l.db.Links().Get(ctx, linkID)
	if err != nil {
		return false, fmt.Errorf("failed to load link %s: %w", linkID, err)
	}
	article, err := l.db.Articles().Get(ctx, link.ArticleID)
	if err != nil {
		return false, fmt.Errorf("failed to load article %s: %w", link.ArticleID, err)
	}

	blocks := core.CloneBlocks(article.Content)
	found := unwrapOne(blocks, func(tag content.AnchorTag) bool {
		return tag.Href == link.URL && tag.Text == link.AnchorText
	}) || clearButton(blocks, func(button content.ButtonLink) bool {
		return button.URL == link.URL && content.TextOf(button.Caption) == link.AnchorText
	}) || unwrapOne(blocks, func(tag content.AnchorTag) bool {
		return tag.Href == link.URL
	}) || clearButton(blocks, func(button content.ButtonLink) bool {
		return button.URL == link.URL
	})

	if !found {
		for _, record := range l.ledger.Extract(article.ID, blocks) {
			if record.URL == link.URL {
				return false, fmt.Errorf("link %s to %s is still in content but could not be located", linkID, link.URL)
			}
		}
		l.log.Warn().Str("link_id", linkID).Str("url", link.URL).Msg("Tracked link not present in content, deleting ledger row only")
		if err := l.db.Links().Delete(ctx, linkID); err != nil {
			return false, fmt.Errorf("failed to delete link %s: %w", linkID, err)
		}
		return false, nil
	}

	err = persistence.WithTx(ctx, l.db, func(tx persistence.Transaction) error {
		if err := tx.Articles().UpdateContent(ctx, article.ID, blocks, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to save content: %w", err)
		}
		if err := tx.Links().Delete(ctx, linkID); err != nil {
			return fmt.Errorf("failed to delete link %s: %w", linkID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	l.metrics.RecordRemovals(1)
	l.analytics.TrackLinksRemoved(ctx, article.ID, 1, scopeSingle)
	l.log.Info().Str("article_id", article.ID).Str("url", link.URL).Msg("Link removed")
	return true, nil
}

func unwrapOne(blocks []core.Block, match func(content.AnchorTag) bool) bool {
	for _, span := range content.Spans(blocks) {
		if text, ok := content.UnwrapFirst(span.Text, match); ok {
			content.SetSpan(blocks, span, text)
			return true
		}
	}
	return false
}

func clearButton(blocks []core.Block, match func(content.ButtonLink) bool) bool {
	for _, button := range content.ButtonLinks(blocks) {
		if match(button) {
			return content.ClearButtonURL(blocks, button.BlockID)
		}
	}
	return false
}

// RemoveInternalLinksBySlugs strips internal links from each article named
// in slugs, one article at a time. Unknown slugs are reported in the result
// with an error message. A store failure stops the batch.
func (l *Linker) RemoveInternalLinksBySlugs(ctx context.Context, slugs []string) ([]RemovalResult, error) {
	found, err := l.db.Articles().GetBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up slugs: %w", err)
	}

	var results []RemovalResult
	for _, slug := range slugs {
		summary, ok := found[slug]
		if !ok {
			results = append(results, RemovalResult{Slug: slug, Error: "post not found"})
			continue
		}
		removed, err := l.RemoveInternalLinks(ctx, summary.ID)
		if err != nil {
			return results, err
		}
		results = append(results, RemovalResult{ArticleID: summary.ID, Slug: slug, Removed: removed})
	}
	return results, nil
}

// RemoveAllInternalLinks strips internal links from every published article,
// oldest first. Only articles that had links are included in the result.
func (l *Linker) RemoveAllInternalLinks(ctx context.Context) ([]RemovalResult, error) {
	const pageSize = 100
	var results []RemovalResult

	for offset := 0; ; offset += pageSize {
		page, err := l.db.Articles().ListPublished(ctx, persistence.ArticleFilter{
			Limit:       pageSize,
			Offset:      offset,
			OldestFirst: true,
		})
		if err != nil {
			return results, fmt.Errorf("failed to list published articles: %w", err)
		}
		for _, summary := range page {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			removed, err := l.RemoveInternalLinks(ctx, summary.ID)
			if err != nil {
				return results, err
			}
			if removed > 0 {
				results = append(results, RemovalResult{ArticleID: summary.ID, Slug: summary.Slug, Removed: removed})
			}
		}
		if len(page) < pageSize {
			return results, nil
		}
	}
}

// SyncLedger rebuilds the ledger of one article from its stored content.
func (l *Linker) SyncLedger(ctx context.Context, articleID string) ([]core.LinkRecord, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, fmt.Errorf("%w: post id is required", ErrInvalidInput)
	}
	records, err := l.ledger.SyncArticle(ctx, l.db, articleID)
	if err != nil {
		return nil, err
	}
	internal, external := ledger.Counts(records)
	l.analytics.TrackLedgerSync(ctx, articleID, internal, external)
	return records, nil
}
