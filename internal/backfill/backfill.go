// Package backfill finds published articles that carry fewer internal links
// than their length and the catalog size warrant.
package backfill

import (
	"context"
	"fmt"
	"sort"

	"interlink/internal/logger"
	"interlink/internal/persistence"

	"github.com/rs/zerolog"
)

const (
	defaultLimit       = 10
	defaultReadingTime = 5 // minutes
	wordsPerMinute     = 200
	linksPerThousand   = 3
	maxTitleLength     = 60
)

// Post is an article below its recommended internal link count.
type Post struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	CurrentLinks int    `json:"current_links"`
	Recommended  int    `json:"recommended"`
	Deficit      int    `json:"deficit"`
}

// Result lists the posts needing links, most in need first.
type Result struct {
	Posts       []Post `json:"posts"`
	CatalogSize int    `json:"catalog_size"`
	Note        string `json:"note,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Finder computes link deficits
type Finder struct {
	db  persistence.Repositories
	log zerolog.Logger
}

// New creates a finder
func New(db persistence.Repositories) *Finder {
	return &Finder{db: db, log: logger.Component("backfill")}
}

// CatalogCap returns how many internal links a post can realistically carry
// given the number of published posts, with a note for small catalogs.
func CatalogCap(total int) (int, string) {
	switch {
	case total < 5:
		return 1, fmt.Sprintf("Small catalog (%d posts) - limited linking possible", total)
	case total < 15:
		return 2, fmt.Sprintf("Growing catalog (%d posts) - moderate linking", total)
	case total < 30:
		return 3, fmt.Sprintf("Medium catalog (%d posts)", total)
	case total < 50:
		return 4, ""
	default:
		return 6, ""
	}
}

// Recommended is about three internal links per thousand words, at least
// two, and never more than the catalog allows.
func Recommended(readingTime, catalogCap int) int {
	if readingTime <= 0 {
		readingTime = defaultReadingTime
	}
	byLength := max(2, readingTime*wordsPerMinute*linksPerThousand/1000)
	return min(byLength, catalogCap)
}

// PostsNeedingLinks returns up to limit published posts whose internal link
// count is below Recommended, sorted by deficit. The oldest
// max(2*limit, 100) posts are considered.
func (f *Finder) PostsNeedingLinks(ctx context.Context, limit int) (*Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	total, err := f.db.Articles().CountPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count published articles: %w", err)
	}
	catalogCap, note := CatalogCap(total)

	posts, err := f.db.Articles().ListPublished(ctx, persistence.ArticleFilter{
		Limit:       max(limit*2, 100),
		OldestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list published articles: %w", err)
	}
	if len(posts) == 0 {
		return &Result{Posts: []Post{}, Message: "No published posts found"}, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := f.db.Links().CountInternalByArticleIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count internal links: %w", err)
	}

	needing := []Post{}
	for _, p := range posts {
		recommended := Recommended(p.ReadingTime, catalogCap)
		current := counts[p.ID]
		if deficit := recommended - current; deficit > 0 {
			needing = append(needing, Post{
				ID:           p.ID,
				Slug:         p.Slug,
				Title:        truncate(p.Title, maxTitleLength),
				CurrentLinks: current,
				Recommended:  recommended,
				Deficit:      deficit,
			})
		}
	}

	sort.SliceStable(needing, func(i, j int) bool {
		return needing[i].Deficit > needing[j].Deficit
	})
	if len(needing) > limit {
		needing = needing[:limit]
	}

	f.log.Debug().Int("catalog", total).Int("scanned", len(posts)).Int("needing", len(needing)).Msg("Link deficits computed")

	if len(needing) == 0 {
		return &Result{Posts: needing, CatalogSize: total, Message: "All posts have adequate internal links for current catalog size"}, nil
	}
	return &Result{Posts: needing, CatalogSize: total, Note: note}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
