// Package testutil provides an in-memory persistence.Database for package
// tests. Transactions work on a private copy that replaces the shared state
// on commit, so rollback semantics match the SQL stores.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"interlink/internal/core"
	"interlink/internal/persistence"

	"github.com/google/uuid"
)

// Operation names accepted by MemDB.Fail
const (
	OpGet            = "articles.get"
	OpGetBySlugs     = "articles.get_by_slugs"
	OpCountPublished = "articles.count_published"
	OpListPublished  = "articles.list_published"
	OpUpdateContent  = "articles.update_content"
	OpReplaceLinks   = "links.replace"
	OpDeleteInternal = "links.delete_internal"
	OpDeleteLink     = "links.delete"
	OpCountInternal  = "links.count_internal"
	OpBeginTx        = "begin_tx"
)

type memState struct {
	articles map[string]core.Article
	order    []string // insertion order, used as a stable tie-break
	links    []core.LinkRecord
}

func (s *memState) clone() *memState {
	c := &memState{
		articles: make(map[string]core.Article, len(s.articles)),
		order:    append([]string(nil), s.order...),
		links:    append([]core.LinkRecord(nil), s.links...),
	}
	for id, a := range s.articles {
		a.Content = core.CloneBlocks(a.Content)
		c.articles[id] = a
	}
	return c
}

// MemDB is an in-memory persistence.Database
type MemDB struct {
	mu       sync.Mutex
	state    *memState
	failures map[string]error

	Commits   int
	Rollbacks int
	Updates   int
}

// NewMemDB returns an empty database
func NewMemDB() *MemDB {
	return &MemDB{
		state:    &memState{articles: make(map[string]core.Article)},
		failures: make(map[string]error),
	}
}

// Fail makes every later call of op return err. A nil err clears it.
func (db *MemDB) Fail(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

func (db *MemDB) failure(op string) error {
	return db.failures[op]
}

// Add stores an article directly and returns the stored copy.
// Missing ids, timestamps and status are filled in.
func (db *MemDB) Add(article core.Article) core.Article {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.add(&article)
	return article
}

// Published builds and stores a published article with the given prose
// paragraphs, one block per paragraph.
func (db *MemDB) Published(slug, title, category string, paragraphs ...string) core.Article {
	var blocks []core.Block
	for i, p := range paragraphs {
		blocks = append(blocks, core.Block{
			ID:   fmt.Sprintf("%s-p%d", slug, i+1),
			Type: core.BlockParagraph,
			Data: map[string]interface{}{"text": p},
		})
	}
	return db.Add(core.Article{
		Slug:         slug,
		Title:        title,
		CategorySlug: category,
		Status:       core.StatusPublished,
		Content:      blocks,
	})
}

// Article returns the committed copy of an article
func (db *MemDB) Article(id string) core.Article {
	db.mu.Lock()
	defer db.mu.Unlock()
	a := db.state.articles[id]
	a.Content = core.CloneBlocks(a.Content)
	return a
}

// LinksOf returns the committed ledger rows of an article
func (db *MemDB) LinksOf(articleID string) []core.LinkRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []core.LinkRecord
	for _, l := range db.state.links {
		if l.ArticleID == articleID {
			out = append(out, l)
		}
	}
	return out
}

func (s *memState) add(article *core.Article) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CategoryID == "" && article.CategorySlug != "" {
		article.CategoryID = "cat-" + article.CategorySlug
	}
	if article.Status == "" {
		article.Status = core.StatusDraft
	}
	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		// Later additions are newer, keeping list order deterministic.
		article.CreatedAt = now.Add(time.Duration(len(s.order)) * time.Millisecond)
	}
	if article.UpdatedAt.IsZero() {
		article.UpdatedAt = article.CreatedAt
	}
	stored := *article
	stored.Content = core.CloneBlocks(article.Content)
	if _, exists := s.articles[article.ID]; !exists {
		s.order = append(s.order, article.ID)
	}
	s.articles[article.ID] = stored
}

func (db *MemDB) Articles() persistence.ArticleRepository {
	return &memArticles{db: db, state: func() *memState { return db.state }}
}

func (db *MemDB) Links() persistence.LinkRepository {
	return &memLinks{db: db, state: func() *memState { return db.state }}
}

func (db *MemDB) Close() error                   { return nil }
func (db *MemDB) Ping(ctx context.Context) error { return ctx.Err() }

func (db *MemDB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure(OpBeginTx); err != nil {
		return nil, err
	}
	return &memTx{db: db, state: db.state.clone()}, nil
}

type memTx struct {
	db    *MemDB
	state *memState
	done  bool
}

func (tx *memTx) Articles() persistence.ArticleRepository {
	return &memArticles{db: tx.db, state: func() *memState { return tx.state }}
}

func (tx *memTx) Links() persistence.LinkRepository {
	return &memLinks{db: tx.db, state: func() *memState { return tx.state }}
}

func (tx *memTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	tx.done = true
	tx.db.state = tx.state
	tx.db.Commits++
	return nil
}

func (tx *memTx) Rollback() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if tx.done {
		return nil
	}
	tx.done = true
	tx.db.Rollbacks++
	return nil
}

type memArticles struct {
	db    *MemDB
	state func() *memState
}

func (r *memArticles) Create(ctx context.Context, article *core.Article) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.state().articles {
		if a.Slug == article.Slug {
			return fmt.Errorf("slug %q already exists", article.Slug)
		}
	}
	r.state().add(article)
	return nil
}

func (r *memArticles) Get(ctx context.Context, id string) (*core.Article, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpGet); err != nil {
		return nil, err
	}
	a, ok := r.state().articles[id]
	if !ok {
		return nil, fmt.Errorf("article %s: %w", id, persistence.ErrNotFound)
	}
	a.Content = core.CloneBlocks(a.Content)
	return &a, nil
}

func (r *memArticles) GetBySlug(ctx context.Context, slug string) (*core.Article, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.state().articles {
		if a.Slug == slug {
			a.Content = core.CloneBlocks(a.Content)
			return &a, nil
		}
	}
	return nil, fmt.Errorf("article %s: %w", slug, persistence.ErrNotFound)
}

func (r *memArticles) GetBySlugs(ctx context.Context, slugs []string) (map[string]core.ArticleSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpGetBySlugs); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		wanted[s] = true
	}
	result := make(map[string]core.ArticleSummary)
	for _, a := range r.state().articles {
		if wanted[a.Slug] {
			result[a.Slug] = a.Summary()
		}
	}
	return result, nil
}

func (r *memArticles) CountPublished(ctx context.Context) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpCountPublished); err != nil {
		return 0, err
	}
	n := 0
	for _, a := range r.state().articles {
		if a.Status == core.StatusPublished {
			n++
		}
	}
	return n, nil
}

func (r *memArticles) ListPublished(ctx context.Context, filter persistence.ArticleFilter) ([]core.ArticleSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpListPublished); err != nil {
		return nil, err
	}

	state := r.state()
	position := make(map[string]int, len(state.order))
	for i, id := range state.order {
		position[id] = i
	}

	needle := strings.ToLower(filter.TitleContains)
	var matched []core.Article
	for _, a := range state.articles {
		if a.Status != core.StatusPublished {
			continue
		}
		if filter.CategoryID != "" && a.CategoryID != filter.CategoryID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.Title), needle) {
			continue
		}
		if filter.ExcludeSlug != "" && a.Slug == filter.ExcludeSlug {
			continue
		}
		matched = append(matched, a)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return position[a.ID] < position[b.ID]
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var out []core.ArticleSummary
	for i := filter.Offset; i < len(matched) && len(out) < limit; i++ {
		out = append(out, matched[i].Summary())
	}
	return out, nil
}

func (r *memArticles) UpdateContent(ctx context.Context, id string, content []core.Block, updatedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpUpdateContent); err != nil {
		return err
	}
	a, ok := r.state().articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, persistence.ErrNotFound)
	}
	a.Content = core.CloneBlocks(content)
	a.UpdatedAt = updatedAt
	r.state().articles[id] = a
	r.db.Updates++
	return nil
}

type memLinks struct {
	db    *MemDB
	state func() *memState
}

func (r *memLinks) Get(ctx context.Context, id string) (*core.LinkRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.state().links {
		if l.ID == id {
			link := l
			return &link, nil
		}
	}
	return nil, fmt.Errorf("link %s: %w", id, persistence.ErrNotFound)
}

func (r *memLinks) ListByArticle(ctx context.Context, articleID string) ([]core.LinkRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []core.LinkRecord
	for _, l := range r.state().links {
		if l.ArticleID == articleID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLinks) CountInternalByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpCountInternal); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(articleIDs))
	for _, id := range articleIDs {
		wanted[id] = true
	}
	counts := make(map[string]int)
	for _, l := range r.state().links {
		if l.LinkType == core.LinkInternal && wanted[l.ArticleID] {
			counts[l.ArticleID]++
		}
	}
	return counts, nil
}

func (r *memLinks) ReplaceForArticle(ctx context.Context, articleID string, links []core.LinkRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpReplaceLinks); err != nil {
		return err
	}
	state := r.state()
	kept := state.links[:0:0]
	for _, l := range state.links {
		if l.ArticleID != articleID {
			kept = append(kept, l)
		}
	}
	for i := range links {
		if links[i].ID == "" {
			links[i].ID = uuid.NewString()
		}
		if links[i].CreatedAt.IsZero() {
			links[i].CreatedAt = time.Now().UTC()
		}
		row := links[i]
		row.ArticleID = articleID
		kept = append(kept, row)
	}
	state.links = kept
	return nil
}

func (r *memLinks) DeleteInternalByArticle(ctx context.Context, articleID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpDeleteInternal); err != nil {
		return 0, err
	}
	state := r.state()
	kept := state.links[:0:0]
	removed := 0
	for _, l := range state.links {
		if l.ArticleID == articleID && l.LinkType == core.LinkInternal {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	state.links = kept
	return removed, nil
}

func (r *memLinks) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure(OpDeleteLink); err != nil {
		return err
	}
	state := r.state()
	for i, l := range state.links {
		if l.ID == id {
			state.links = append(state.links[:i:i], state.links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("link %s: %w", id, persistence.ErrNotFound)
}
