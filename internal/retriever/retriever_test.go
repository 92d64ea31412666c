package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"interlink/internal/core"
	"interlink/internal/linkurl"
	"interlink/internal/relevance"
	"interlink/internal/testutil"
)

func seedCatalog(db *testutil.MemDB) {
	db.Published("putting-grip", "Putting Grip Styles", "putting")
	db.Published("slice-drills", "Slice Drills for the Range", "full-swing")
	db.Published("putting-speed", "Reading Putting Speed", "putting")
	db.Published("driver-slice", "Why Your Driver Slices", "full-swing")
	db.Published("slice-fix", "How to Fix a Slice", "full-swing")
}

func TestRetrieveCatalogGate(t *testing.T) {
	db := testutil.NewMemDB()
	db.Published("one", "One", "c")
	db.Published("two", "Two", "c")
	db.Add(core.Article{Slug: "draft", Title: "Draft"})

	scorer := testutil.NewMockLLM(`[]`)
	s := NewSuggester(New(db.Articles(), core.DefaultSettings()), relevance.NewLLMScorer(scorer, core.DefaultSettings(), nil), linkurl.MustNew(""))

	result, err := s.Suggest(context.Background(), Query{Topic: "anything"})
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if !result.Skip || result.Reason != "catalog too small (2 posts)" {
		t.Errorf("Expected catalog skip, got %+v", result)
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("Expected no suggestions, got %d", len(result.Suggestions))
	}
	if scorer.CallCount() != 0 {
		t.Error("Scoring must not run below the catalog floor")
	}
}

func TestRetrieveCategoryFirstThenKeyword(t *testing.T) {
	db := testutil.NewMemDB()
	seedCatalog(db)

	r := New(db.Articles(), core.DefaultSettings())
	result, err := r.Retrieve(context.Background(), Query{
		Topic:       "The Slice Cure",
		CategoryID:  "cat-putting",
		ExcludeSlug: "putting-speed",
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	var slugs []string
	for _, c := range result.Candidates {
		slugs = append(slugs, c.Slug)
	}
	// Category match first, then "slice" title matches newest first.
	want := []string{"putting-grip", "slice-fix", "driver-slice", "slice-drills"}
	if strings.Join(slugs, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, slugs)
	}
	if result.TotalPublished != 5 {
		t.Errorf("Expected 5 published, got %d", result.TotalPublished)
	}
}

func TestRetrievePunctuatedTopic(t *testing.T) {
	db := testutil.NewMemDB()
	seedCatalog(db)
	db.Published("why-slicing", "Why Slicing Happens", "ball-flight")

	r := New(db.Articles(), core.DefaultSettings())
	result, err := r.Retrieve(context.Background(), Query{Topic: "Slicing: How to Stop It"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Slug != "why-slicing" {
		t.Errorf("Expected why-slicing from the title keyword, got %+v", result.Candidates)
	}
}

func TestRetrieveDedupesAndTruncates(t *testing.T) {
	db := testutil.NewMemDB()
	seedCatalog(db)

	r := New(db.Articles(), core.DefaultSettings())
	result, err := r.Retrieve(context.Background(), Query{Topic: "slice", CategoryID: "cat-full-swing", Limit: 2})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Slug != "slice-fix" || result.Candidates[1].Slug != "driver-slice" {
		t.Errorf("Unexpected candidates %+v", result.Candidates)
	}
}

func TestLimit(t *testing.T) {
	r := New(testutil.NewMemDB().Articles(), core.DefaultSettings())
	tests := []struct{ in, want int }{{0, 8}, {-1, 8}, {5, 5}, {15, 15}, {40, 15}}
	for _, tt := range tests {
		if got := r.Limit(tt.in); got != tt.want {
			t.Errorf("Limit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRetrieveErrors(t *testing.T) {
	db := testutil.NewMemDB()
	r := New(db.Articles(), core.DefaultSettings())

	if _, err := r.Retrieve(context.Background(), Query{Topic: "  "}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	boom := errors.New("boom")
	db.Fail(testutil.OpCountPublished, boom)
	if _, err := r.Retrieve(context.Background(), Query{Topic: "slice"}); !errors.Is(err, boom) {
		t.Errorf("Store errors should propagate, got %v", err)
	}

	db.Fail(testutil.OpCountPublished, nil)
	seedCatalog(db)
	db.Fail(testutil.OpListPublished, boom)
	if _, err := r.Retrieve(context.Background(), Query{Topic: "slice"}); !errors.Is(err, boom) {
		t.Errorf("Store errors should propagate, got %v", err)
	}
}

func TestSuggestBuildsURLsAndGuidance(t *testing.T) {
	db := testutil.NewMemDB()
	seedCatalog(db)

	mock := testutil.NewMockLLM(`[
		{"score": 4, "anchors": [], "anti": [], "intent": ""},
		{"score": 9, "anchors": ["driver slice causes"], "anti": [], "intent": "why drivers slice"},
		{"score": 8, "anchors": ["slice fixing drills"], "anti": ["bread slice"], "intent": "range drills"}
	]`)
	settings := core.DefaultSettings()
	s := NewSuggester(
		New(db.Articles(), settings),
		relevance.NewLLMScorer(mock, settings, nil),
		linkurl.MustNew("/{category}/{slug}"),
	)

	result, err := s.Suggest(context.Background(), Query{Topic: "Slice", CategoryID: "cat-putting", ExcludeSlug: "slice-fix"})
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if result.Skip {
		t.Fatalf("Unexpected skip: %s", result.Reason)
	}
	if len(result.Suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %+v", result.Suggestions)
	}
	if result.Suggestions[0].URL != "/full-swing/driver-slice" {
		t.Errorf("Unexpected URL %s", result.Suggestions[0].URL)
	}
	if result.Suggestions[1].AntiPatterns[0] != "bread slice" {
		t.Errorf("Anti patterns should be carried: %+v", result.Suggestions[1])
	}
	if result.Candidates != 3 || result.Fallback {
		t.Errorf("Expected 3 judged candidates, got %d (fallback %v)", result.Candidates, result.Fallback)
	}
	if result.MaxInternalLinks != 2 || !strings.Contains(result.Guidance, "Small catalog (5 posts)") {
		t.Errorf("Unexpected guidance %d %q", result.MaxInternalLinks, result.Guidance)
	}
}

func TestSuggestNothingRelevant(t *testing.T) {
	db := testutil.NewMemDB()
	seedCatalog(db)

	mock := testutil.NewMockLLM(`[{"score": 2}, {"score": 3}, {"score": 1}]`)
	s := NewSuggester(New(db.Articles(), core.DefaultSettings()), relevance.NewLLMScorer(mock, core.DefaultSettings(), nil), linkurl.MustNew(""))

	result, err := s.Suggest(context.Background(), Query{Topic: "slice"})
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if !result.Skip || !strings.Contains(result.Reason, "no semantically relevant posts") {
		t.Errorf("Expected relevance skip, got %+v", result)
	}
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		total int
		max   int
	}{{3, 1}, {4, 1}, {5, 2}, {14, 2}, {15, 3}, {29, 3}, {30, 4}, {49, 4}, {50, 0}, {500, 0}}
	for _, tt := range tests {
		max, guidance := Guidance(tt.total)
		if max != tt.max {
			t.Errorf("Guidance(%d) max = %d, want %d", tt.total, max, tt.max)
		}
		if (max == 0) != (guidance == "") {
			t.Errorf("Guidance(%d) text %q inconsistent with max %d", tt.total, guidance, max)
		}
	}
}
