package backfill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"interlink/internal/core"
	"interlink/internal/testutil"
)

func TestCatalogCap(t *testing.T) {
	tests := []struct {
		total    int
		want     int
		withNote bool
	}{
		{0, 1, true},
		{4, 1, true},
		{5, 2, true},
		{14, 2, true},
		{15, 3, true},
		{29, 3, true},
		{30, 4, false},
		{49, 4, false},
		{50, 6, false},
		{500, 6, false},
	}
	for _, tt := range tests {
		got, note := CatalogCap(tt.total)
		if got != tt.want || (note != "") != tt.withNote {
			t.Errorf("CatalogCap(%d) = %d, %q", tt.total, got, note)
		}
	}
}

func TestRecommended(t *testing.T) {
	tests := []struct {
		readingTime, cap, want int
	}{
		{0, 6, 3},  // default 5 minutes: 1000 words
		{1, 6, 2},  // floor of two
		{10, 6, 6}, // 2000 words
		{20, 4, 4}, // capped by catalog
		{5, 1, 1},
	}
	for _, tt := range tests {
		if got := Recommended(tt.readingTime, tt.cap); got != tt.want {
			t.Errorf("Recommended(%d, %d) = %d, want %d", tt.readingTime, tt.cap, got, tt.want)
		}
	}
}

func seed(db *testutil.MemDB, n int) []core.Article {
	var out []core.Article
	for i := 0; i < n; i++ {
		out = append(out, db.Add(core.Article{
			Slug:        fmt.Sprintf("post-%02d", i),
			Title:       fmt.Sprintf("Post %02d", i),
			Status:      core.StatusPublished,
			ReadingTime: 10,
		}))
	}
	return out
}

func TestPostsNeedingLinks(t *testing.T) {
	db := testutil.NewMemDB()
	posts := seed(db, 16) // cap 3
	ctx := context.Background()

	internal := func(n int) []core.LinkRecord {
		var rows []core.LinkRecord
		for i := 0; i < n; i++ {
			rows = append(rows, core.LinkRecord{URL: fmt.Sprintf("/blog/x%d", i), LinkType: core.LinkInternal})
		}
		return append(rows, core.LinkRecord{URL: "https://example.com", LinkType: core.LinkExternal})
	}
	_ = db.Links().ReplaceForArticle(ctx, posts[0].ID, internal(3))
	_ = db.Links().ReplaceForArticle(ctx, posts[1].ID, internal(1))
	_ = db.Links().ReplaceForArticle(ctx, posts[2].ID, internal(2))

	result, err := New(db).PostsNeedingLinks(ctx, 4)
	if err != nil {
		t.Fatalf("PostsNeedingLinks failed: %v", err)
	}
	if result.CatalogSize != 16 || result.Note == "" {
		t.Errorf("Unexpected catalog info %+v", result)
	}
	if len(result.Posts) != 4 {
		t.Fatalf("Expected 4 posts, got %d", len(result.Posts))
	}
	for _, p := range result.Posts {
		if p.Slug == "post-00" {
			t.Error("A post at its recommendation should not be listed")
		}
		if p.Recommended != 3 {
			t.Errorf("Expected recommendation capped at 3, got %d", p.Recommended)
		}
	}
	// Full deficits first, oldest first among equals
	if result.Posts[0].Slug != "post-03" || result.Posts[0].Deficit != 3 || result.Posts[0].CurrentLinks != 0 {
		t.Errorf("Unexpected first post %+v", result.Posts[0])
	}
}

func TestPostsNeedingLinksOrdersByDeficit(t *testing.T) {
	db := testutil.NewMemDB()
	posts := seed(db, 3) // cap 1
	ctx := context.Background()
	_ = db.Links().ReplaceForArticle(ctx, posts[0].ID, []core.LinkRecord{{URL: "/blog/a", LinkType: core.LinkInternal}})

	result, err := New(db).PostsNeedingLinks(ctx, 0)
	if err != nil {
		t.Fatalf("PostsNeedingLinks failed: %v", err)
	}
	if len(result.Posts) != 2 || result.Posts[0].Slug != "post-01" || result.Posts[1].Slug != "post-02" {
		t.Errorf("Unexpected posts %+v", result.Posts)
	}
}

func TestPostsNeedingLinksMessages(t *testing.T) {
	db := testutil.NewMemDB()
	result, err := New(db).PostsNeedingLinks(context.Background(), 10)
	if err != nil || result.Message != "No published posts found" {
		t.Errorf("Unexpected empty-catalog result %+v, %v", result, err)
	}

	posts := seed(db, 1)
	_ = db.Links().ReplaceForArticle(context.Background(), posts[0].ID, []core.LinkRecord{{URL: "/blog/a", LinkType: core.LinkInternal}})
	result, err = New(db).PostsNeedingLinks(context.Background(), 10)
	if err != nil || len(result.Posts) != 0 || !strings.HasPrefix(result.Message, "All posts") {
		t.Errorf("Unexpected satisfied result %+v, %v", result, err)
	}
}

func TestPostsNeedingLinksTruncatesTitle(t *testing.T) {
	db := testutil.NewMemDB()
	db.Add(core.Article{Slug: "long", Title: strings.Repeat("é", 80), Status: core.StatusPublished})

	result, err := New(db).PostsNeedingLinks(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(result.Posts[0].Title)); n != 60 {
		t.Errorf("Expected 60 character title, got %d", n)
	}
}

func TestPostsNeedingLinksErrors(t *testing.T) {
	for _, op := range []string{testutil.OpCountPublished, testutil.OpListPublished, testutil.OpCountInternal} {
		db := testutil.NewMemDB()
		seed(db, 2)
		boom := errors.New("boom")
		db.Fail(op, boom)
		if _, err := New(db).PostsNeedingLinks(context.Background(), 10); !errors.Is(err, boom) {
			t.Errorf("%s: expected error to propagate, got %v", op, err)
		}
	}
}
