// Package ledger derives the link ledger of an article from its content.
// The ledger is never edited directly; every sync replaces it in full.
package ledger

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"interlink/internal/content"
	"interlink/internal/core"
	"interlink/internal/linkurl"
	"interlink/internal/logger"
	"interlink/internal/metrics"
	"interlink/internal/persistence"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxAnchorLength matches the anchor_text column width.
const maxAnchorLength = 255

// Syncer rebuilds ledgers
type Syncer struct {
	urls    *linkurl.Template
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a syncer. m may be nil.
func New(urls *linkurl.Template, m *metrics.Metrics) *Syncer {
	return &Syncer{
		urls:    urls,
		metrics: m,
		log:     logger.Component("ledger"),
	}
}

// Extract returns one record per anchor tag in the prose of blocks, plus one
// per button target, in tree order. LinkedArticleID is left empty.
func (s *Syncer) Extract(articleID string, blocks []core.Block) []core.LinkRecord {
	now := time.Now().UTC()
	var records []core.LinkRecord

	for _, block := range blocks {
		single := []core.Block{block}
		for _, span := range content.Spans(single) {
			for _, tag := range content.FindAnchorTags(span.Text) {
				records = append(records, newRecord(articleID, tag.Href, tag.Text, tag.OpensNewTab, tag.Nofollow, now))
			}
		}
		for _, button := range content.ButtonLinks(single) {
			records = append(records, newRecord(articleID, button.URL, content.TextOf(button.Caption), button.NewTab, false, now))
		}
	}
	return records
}

func newRecord(articleID, url, anchor string, newTab, nofollow bool, now time.Time) core.LinkRecord {
	record := core.LinkRecord{
		ID:          uuid.NewString(),
		ArticleID:   articleID,
		URL:         url,
		AnchorText:  truncate(anchor, maxAnchorLength),
		LinkType:    core.LinkExternal,
		OpensNewTab: newTab,
		IsNofollow:  nofollow,
		CreatedAt:   now,
	}
	if linkurl.IsInternal(url) {
		record.LinkType = core.LinkInternal
	} else {
		record.Domain = linkurl.Domain(url)
	}
	return record
}

// Resolve fills LinkedArticleID on internal records with one slug lookup.
// Slugs with no matching article stay unresolved.
func (s *Syncer) Resolve(ctx context.Context, articles persistence.ArticleRepository, records []core.LinkRecord) error {
	seen := make(map[string]bool)
	var slugs []string
	for _, r := range records {
		if r.LinkType != core.LinkInternal {
			continue
		}
		if slug := s.urls.SlugFromURL(r.URL); slug != "" && !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
	}
	if len(slugs) == 0 {
		return nil
	}

	found, err := articles.GetBySlugs(ctx, slugs)
	if err != nil {
		return fmt.Errorf("failed to resolve internal link targets: %w", err)
	}
	for i := range records {
		if records[i].LinkType != core.LinkInternal {
			continue
		}
		if target, ok := found[s.urls.SlugFromURL(records[i].URL)]; ok {
			records[i].LinkedArticleID = target.ID
		}
	}
	return nil
}

// Sync rebuilds the ledger of articleID from blocks using repos, which is
// normally the transaction that also wrote the content.
func (s *Syncer) Sync(ctx context.Context, repos persistence.Repositories, articleID string, blocks []core.Block) ([]core.LinkRecord, error) {
	records := s.Extract(articleID, blocks)
	if err := s.Resolve(ctx, repos.Articles(), records); err != nil {
		return nil, err
	}
	if err := repos.Links().ReplaceForArticle(ctx, articleID, records); err != nil {
		return nil, fmt.Errorf("failed to replace ledger: %w", err)
	}

	s.metrics.ObserveLedgerSync(len(records))
	s.log.Debug().Str("article_id", articleID).Int("links", len(records)).Msg("Ledger synced")
	return records, nil
}

// SyncArticle reads the stored content of articleID and rebuilds its ledger
// in a transaction.
func (s *Syncer) SyncArticle(ctx context.Context, db persistence.Database, articleID string) ([]core.LinkRecord, error) {
	article, err := db.Articles().Get(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	var records []core.LinkRecord
	err = persistence.WithTx(ctx, db, func(tx persistence.Transaction) error {
		records, err = s.Sync(ctx, tx, article.ID, article.Content)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Counts splits records into internal and external totals
func Counts(records []core.LinkRecord) (internal, external int) {
	for _, r := range records {
		if r.LinkType == core.LinkInternal {
			internal++
		} else {
			external++
		}
	}
	return internal, external
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
