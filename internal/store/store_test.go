package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"interlink/internal/core"
	"interlink/internal/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "interlink.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedArticle(t *testing.T, store *Store, slug, title, category string, status string, created time.Time) *core.Article {
	t.Helper()
	article := &core.Article{
		Slug:         slug,
		Title:        title,
		CategorySlug: category,
		Status:       status,
		CreatedAt:    created,
		Content: []core.Block{
			{ID: "p1", Type: core.BlockParagraph, Data: map[string]interface{}{"text": "Body of " + title}},
		},
	}
	if err := store.Articles().Create(context.Background(), article); err != nil {
		t.Fatalf("Create %s failed: %v", slug, err)
	}
	return article
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data", "interlink.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.db == nil {
		t.Error("Store database should not be nil")
	}

	// Check that database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	// Try to create store below a file (not directory)
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	_, err := NewStore(filepath.Join(invalidPath, "interlink.db"))
	if err == nil {
		t.Error("Expected error when creating store in invalid directory")
	}
}

func TestCreateAndGetArticle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	article := &core.Article{
		Slug:         "fix-your-slice",
		Title:        "Fix Your Slice",
		CategorySlug: "technique",
		Status:       core.StatusPublished,
		Content: []core.Block{
			{ID: "p1", Type: core.BlockParagraph, Data: map[string]interface{}{"text": "hello", "align": "left"}},
			{ID: "l1", Type: core.BlockList, Data: map[string]interface{}{"items": []interface{}{"one", "two"}}},
		},
	}
	if err := store.Articles().Create(ctx, article); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if article.ID == "" || article.CategoryID == "" {
		t.Fatalf("Create should assign ids, got %+v", article)
	}

	got, err := store.Articles().Get(ctx, article.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Slug != "fix-your-slice" || got.CategorySlug != "technique" {
		t.Errorf("Unexpected article %+v", got)
	}
	if len(got.Content) != 2 || got.Content[0].Data["align"] != "left" {
		t.Errorf("Unknown block fields should survive storage, got %+v", got.Content)
	}

	bySlug, err := store.Articles().GetBySlug(ctx, "fix-your-slice")
	if err != nil || bySlug.ID != article.ID {
		t.Errorf("GetBySlug returned %+v, %v", bySlug, err)
	}

	if _, err := store.Articles().Get(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCategoryIsShared(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	a := seedArticle(t, store, "a", "Alpha Post", "putting", core.StatusPublished, now)
	b := seedArticle(t, store, "b", "Beta Post", "putting", core.StatusPublished, now)
	if a.CategoryID != b.CategoryID {
		t.Errorf("Articles in the same category should share its id: %s vs %s", a.CategoryID, b.CategoryID)
	}
}

func TestListPublished(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	putting := seedArticle(t, store, "putting-basics", "Putting Basics", "putting", core.StatusPublished, base)
	seedArticle(t, store, "putting-drills", "Putting Drills 100%", "putting", core.StatusPublished, base.Add(time.Hour))
	seedArticle(t, store, "driver-tips", "Driver Tips", "driving", core.StatusPublished, base.Add(2*time.Hour))
	seedArticle(t, store, "draft-putting", "Putting Draft", "putting", core.StatusDraft, base.Add(3*time.Hour))

	count, err := store.Articles().CountPublished(ctx)
	if err != nil || count != 3 {
		t.Fatalf("Expected 3 published, got %d (%v)", count, err)
	}

	byCategory, err := store.Articles().ListPublished(ctx, persistence.ArticleFilter{
		CategoryID:  putting.CategoryID,
		ExcludeSlug: "putting-basics",
	})
	if err != nil {
		t.Fatalf("ListPublished failed: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Slug != "putting-drills" {
		t.Errorf("Unexpected category listing %+v", byCategory)
	}

	byTitle, err := store.Articles().ListPublished(ctx, persistence.ArticleFilter{TitleContains: "PUTTING"})
	if err != nil {
		t.Fatalf("ListPublished failed: %v", err)
	}
	if len(byTitle) != 2 || byTitle[0].Slug != "putting-drills" {
		t.Errorf("Title search should be case-insensitive and newest first, got %+v", byTitle)
	}

	literal, err := store.Articles().ListPublished(ctx, persistence.ArticleFilter{TitleContains: "100%"})
	if err != nil || len(literal) != 1 {
		t.Errorf("Percent sign should match literally, got %+v (%v)", literal, err)
	}

	oldest, err := store.Articles().ListPublished(ctx, persistence.ArticleFilter{OldestFirst: true, Limit: 1})
	if err != nil || len(oldest) != 1 || oldest[0].Slug != "putting-basics" {
		t.Errorf("Expected oldest first, got %+v (%v)", oldest, err)
	}
}

func TestGetBySlugs(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	seedArticle(t, store, "one", "One Post", "", core.StatusPublished, now)
	seedArticle(t, store, "two", "Two Post", "", core.StatusDraft, now)

	found, err := store.Articles().GetBySlugs(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("GetBySlugs failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(found))
	}
	if found["two"].Status != core.StatusDraft {
		t.Errorf("Status should be reported, got %+v", found["two"])
	}

	empty, err := store.Articles().GetBySlugs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty result for no slugs, got %v (%v)", empty, err)
	}
}

func TestUpdateContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	article := seedArticle(t, store, "post", "Post", "", core.StatusPublished, time.Now().UTC())

	updated := core.CloneBlocks(article.Content)
	updated[0].Data["text"] = `See <a href="/blog/other">other</a>`
	stamp := time.Now().UTC().Add(time.Minute)

	if err := store.Articles().UpdateContent(ctx, article.ID, updated, stamp); err != nil {
		t.Fatalf("UpdateContent failed: %v", err)
	}
	got, _ := store.Articles().Get(ctx, article.ID)
	if got.Content[0].Data["text"] != updated[0].Data["text"] {
		t.Errorf("Content not updated: %+v", got.Content)
	}
	if !got.UpdatedAt.After(article.UpdatedAt) {
		t.Errorf("UpdatedAt should advance")
	}

	if err := store.Articles().UpdateContent(ctx, "missing", updated, stamp); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLedgerOperations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	source := seedArticle(t, store, "source", "Source", "", core.StatusPublished, now)
	target := seedArticle(t, store, "target", "Target", "", core.StatusPublished, now)

	links := []core.LinkRecord{
		{URL: "/blog/target", AnchorText: "target post", LinkType: core.LinkInternal, LinkedArticleID: target.ID},
		{URL: "/blog/gone", AnchorText: "gone post", LinkType: core.LinkInternal},
		{URL: "https://example.com/a", AnchorText: "example", LinkType: core.LinkExternal, Domain: "example.com", OpensNewTab: true, IsNofollow: true},
	}
	if err := store.Links().ReplaceForArticle(ctx, source.ID, links); err != nil {
		t.Fatalf("ReplaceForArticle failed: %v", err)
	}

	got, err := store.Links().ListByArticle(ctx, source.ID)
	if err != nil {
		t.Fatalf("ListByArticle failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(got))
	}
	for _, l := range got {
		if l.ArticleID != source.ID || l.ID == "" {
			t.Errorf("Unexpected row %+v", l)
		}
		if l.LinkType == core.LinkExternal && (!l.OpensNewTab || !l.IsNofollow || l.Domain != "example.com") {
			t.Errorf("External flags lost: %+v", l)
		}
	}

	counts, err := store.Links().CountInternalByArticleIDs(ctx, []string{source.ID, target.ID})
	if err != nil {
		t.Fatalf("CountInternalByArticleIDs failed: %v", err)
	}
	if counts[source.ID] != 2 || counts[target.ID] != 0 {
		t.Errorf("Unexpected counts %v", counts)
	}

	// Replace is a full rewrite
	if err := store.Links().ReplaceForArticle(ctx, source.ID, links[:1]); err != nil {
		t.Fatalf("ReplaceForArticle failed: %v", err)
	}
	got, _ = store.Links().ListByArticle(ctx, source.ID)
	if len(got) != 1 {
		t.Errorf("Expected ledger rewrite to 1 row, got %d", len(got))
	}

	if err := store.Links().Delete(ctx, got[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Links().Get(ctx, got[0].ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Links().Delete(ctx, got[0].ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDeleteInternalByArticle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	source := seedArticle(t, store, "source", "Source", "", core.StatusPublished, time.Now().UTC())

	var links []core.LinkRecord
	for i := 0; i < 3; i++ {
		links = append(links, core.LinkRecord{URL: fmt.Sprintf("/blog/p%d", i), LinkType: core.LinkInternal})
	}
	links = append(links, core.LinkRecord{URL: "https://example.com", LinkType: core.LinkExternal})
	_ = store.Links().ReplaceForArticle(ctx, source.ID, links)

	n, err := store.Links().DeleteInternalByArticle(ctx, source.ID)
	if err != nil || n != 3 {
		t.Fatalf("Expected 3 deleted, got %d (%v)", n, err)
	}
	rest, _ := store.Links().ListByArticle(ctx, source.ID)
	if len(rest) != 1 || rest[0].LinkType != core.LinkExternal {
		t.Errorf("External rows should remain, got %+v", rest)
	}
}

func TestTransactionRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	article := seedArticle(t, store, "post", "Post", "", core.StatusPublished, time.Now().UTC())

	boom := errors.New("boom")
	err := persistence.WithTx(ctx, store, func(tx persistence.Transaction) error {
		changed := core.CloneBlocks(article.Content)
		changed[0].Data["text"] = "changed"
		if err := tx.Articles().UpdateContent(ctx, article.ID, changed, time.Now().UTC()); err != nil {
			return err
		}
		if err := tx.Links().ReplaceForArticle(ctx, article.ID, []core.LinkRecord{{URL: "/blog/x", LinkType: core.LinkInternal}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	got, _ := store.Articles().Get(ctx, article.ID)
	if got.Content[0].Data["text"] == "changed" {
		t.Error("Content update should have rolled back")
	}
	links, _ := store.Links().ListByArticle(ctx, article.ID)
	if len(links) != 0 {
		t.Errorf("Ledger write should have rolled back, got %d rows", len(links))
	}
}

func TestTransactionCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	article := seedArticle(t, store, "post", "Post", "", core.StatusPublished, time.Now().UTC())

	err := persistence.WithTx(ctx, store, func(tx persistence.Transaction) error {
		return tx.Links().ReplaceForArticle(ctx, article.ID, []core.LinkRecord{{URL: "/blog/x", LinkType: core.LinkInternal}})
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	links, _ := store.Links().ListByArticle(ctx, article.ID)
	if len(links) != 1 {
		t.Errorf("Expected committed row, got %d", len(links))
	}
}
