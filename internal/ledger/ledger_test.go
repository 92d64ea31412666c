package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"interlink/internal/core"
	"interlink/internal/linkurl"
	"interlink/internal/testutil"
)

func richContent() []core.Block {
	return []core.Block{
		{ID: "p1", Type: core.BlockParagraph, Data: map[string]interface{}{
			"text": `Read <a href="/blog/grip-basics">grip <em>basics</em></a> and <a href="https://www.Example.com/x" target="_blank" rel="noopener nofollow">this study</a>.`,
		}},
		{ID: "h1", Type: core.BlockHeading, Data: map[string]interface{}{"text": `<a href="/blog/ignored">not prose</a>`}},
		{ID: "l1", Type: core.BlockList, Data: map[string]interface{}{"items": []interface{}{
			`See <a href="/blog/missing-post">missing post</a>`, "plain item",
		}}},
		{ID: "a1", Type: core.BlockAccordion, Data: map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"question": "Q?", "answer": `Try <a href="/blog/grip-basics?ref=faq">the grip drill</a>`},
		}}},
		{ID: "b1", Type: core.BlockButton, Data: map[string]interface{}{"text": "Shop now", "url": "https://shop.example.org/", "newTab": true}},
	}
}

func TestExtract(t *testing.T) {
	s := New(linkurl.MustNew(""), nil)
	records := s.Extract("article-1", richContent())

	if len(records) != 5 {
		t.Fatalf("Expected 5 records, got %d: %+v", len(records), records)
	}

	first := records[0]
	if first.URL != "/blog/grip-basics" || first.AnchorText != "grip basics" || first.LinkType != core.LinkInternal {
		t.Errorf("Unexpected first record %+v", first)
	}
	if first.Domain != "" || first.ArticleID != "article-1" || first.ID == "" {
		t.Errorf("Internal records carry no domain, got %+v", first)
	}

	ext := records[1]
	if ext.LinkType != core.LinkExternal || ext.Domain != "example.com" || !ext.OpensNewTab || !ext.IsNofollow {
		t.Errorf("Unexpected external record %+v", ext)
	}

	if records[2].URL != "/blog/missing-post" || records[3].AnchorText != "the grip drill" {
		t.Errorf("List and accordion links should follow in tree order: %+v", records[2:4])
	}

	button := records[4]
	if button.URL != "https://shop.example.org/" || button.AnchorText != "Shop now" || !button.OpensNewTab || button.IsNofollow {
		t.Errorf("Unexpected button record %+v", button)
	}
}

func TestExtractButtonCaptionWithLink(t *testing.T) {
	blocks := []core.Block{{ID: "b1", Type: core.BlockButton, Data: map[string]interface{}{
		"text": `Read <a href="/blog/grip-basics">the guide</a>`,
		"url":  "/blog/target",
	}}}
	records := New(linkurl.MustNew(""), nil).Extract("a", blocks)

	if len(records) != 2 {
		t.Fatalf("Expected caption link and button target, got %d: %+v", len(records), records)
	}
	if records[0].URL != "/blog/grip-basics" || records[0].AnchorText != "the guide" {
		t.Errorf("Unexpected caption link record %+v", records[0])
	}
	button := records[1]
	if button.URL != "/blog/target" {
		t.Errorf("Expected button target /blog/target, got %s", button.URL)
	}
	if button.AnchorText != "Read the guide" {
		t.Errorf("Expected caption without markup, got %q", button.AnchorText)
	}
}

func TestExtractTruncatesAnchor(t *testing.T) {
	long := strings.Repeat("é", 300)
	blocks := []core.Block{{ID: "p", Type: core.BlockParagraph, Data: map[string]interface{}{
		"text": `<a href="/blog/x">` + long + `</a>`,
	}}}
	records := New(linkurl.MustNew(""), nil).Extract("a", blocks)
	if n := len([]rune(records[0].AnchorText)); n != 255 {
		t.Errorf("Expected 255 characters, got %d", n)
	}
}

func TestSyncResolvesAndReplaces(t *testing.T) {
	db := testutil.NewMemDB()
	target := db.Published("grip-basics", "Grip Basics", "")
	source := db.Add(core.Article{Slug: "source", Title: "Source", Status: core.StatusPublished, Content: richContent()})

	s := New(linkurl.MustNew(""), nil)
	records, err := s.SyncArticle(context.Background(), db, source.ID)
	if err != nil {
		t.Fatalf("SyncArticle failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(records))
	}

	stored := db.LinksOf(source.ID)
	if len(stored) != 5 {
		t.Fatalf("Expected 5 stored rows, got %d", len(stored))
	}
	if stored[0].LinkedArticleID != target.ID {
		t.Errorf("Internal link should resolve to %s, got %q", target.ID, stored[0].LinkedArticleID)
	}
	if stored[3].LinkedArticleID != target.ID {
		t.Errorf("Query strings should not prevent resolution, got %q", stored[3].LinkedArticleID)
	}
	if stored[2].LinkedArticleID != "" {
		t.Errorf("Unknown slug should stay unresolved, got %q", stored[2].LinkedArticleID)
	}

	internal, external := Counts(records)
	if internal != 3 || external != 2 {
		t.Errorf("Unexpected counts %d/%d", internal, external)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	db := testutil.NewMemDB()
	db.Published("grip-basics", "Grip Basics", "")
	source := db.Add(core.Article{Slug: "source", Title: "Source", Status: core.StatusPublished, Content: richContent()})
	s := New(linkurl.MustNew(""), nil)

	if _, err := s.SyncArticle(context.Background(), db, source.ID); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	first := db.LinksOf(source.ID)
	if _, err := s.SyncArticle(context.Background(), db, source.ID); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	second := db.LinksOf(source.ID)

	if len(first) != len(second) {
		t.Fatalf("Cardinality changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.URL != b.URL || a.AnchorText != b.AnchorText || a.LinkType != b.LinkType ||
			a.LinkedArticleID != b.LinkedArticleID || a.Domain != b.Domain ||
			a.OpensNewTab != b.OpensNewTab || a.IsNofollow != b.IsNofollow {
			t.Errorf("Row %d changed: %+v vs %+v", i, a, b)
		}
	}
}

func TestSyncEmptyContentClearsLedger(t *testing.T) {
	db := testutil.NewMemDB()
	a := db.Published("plain", "Plain", "", "no links here")
	_ = db.Links().ReplaceForArticle(context.Background(), a.ID, []core.LinkRecord{{URL: "/blog/stale", LinkType: core.LinkInternal}})

	records, err := New(linkurl.MustNew(""), nil).SyncArticle(context.Background(), db, a.ID)
	if err != nil {
		t.Fatalf("SyncArticle failed: %v", err)
	}
	if len(records) != 0 || len(db.LinksOf(a.ID)) != 0 {
		t.Error("Stale rows should be removed")
	}
}

func TestSyncPropagatesStoreErrors(t *testing.T) {
	db := testutil.NewMemDB()
	db.Published("grip-basics", "Grip Basics", "")
	source := db.Add(core.Article{Slug: "source", Status: core.StatusPublished, Content: richContent()})
	s := New(linkurl.MustNew(""), nil)

	boom := errors.New("boom")
	db.Fail(testutil.OpGetBySlugs, boom)
	if _, err := s.SyncArticle(context.Background(), db, source.ID); !errors.Is(err, boom) {
		t.Errorf("Expected lookup error, got %v", err)
	}

	db.Fail(testutil.OpGetBySlugs, nil)
	db.Fail(testutil.OpReplaceLinks, boom)
	if _, err := s.SyncArticle(context.Background(), db, source.ID); !errors.Is(err, boom) {
		t.Errorf("Expected replace error, got %v", err)
	}
	if db.Commits != 0 {
		t.Error("Failed syncs must not commit")
	}
}

func TestResolveWithCategoryTemplate(t *testing.T) {
	db := testutil.NewMemDB()
	target := db.Published("driver-loft", "Driver Loft", "equipment")
	records := []core.LinkRecord{{URL: "/equipment/driver-loft/", LinkType: core.LinkInternal}}

	s := New(linkurl.MustNew("/{category}/{slug}"), nil)
	if err := s.Resolve(context.Background(), db.Articles(), records); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if records[0].LinkedArticleID != target.ID {
		t.Errorf("Expected %s, got %q", target.ID, records[0].LinkedArticleID)
	}
}
