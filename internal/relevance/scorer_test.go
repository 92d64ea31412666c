package relevance

import (
	"context"
	"strings"
	"testing"
	"time"

	"interlink/internal/core"
	"interlink/internal/metrics"
	"interlink/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/genai"
)

var source = Source{Topic: "How to Fix Your Slice", Excerpt: "Straighten your ball flight"}

func testCandidates() []core.Candidate {
	return []core.Candidate{
		{Slug: "grip-pressure", Title: "Grip Pressure Mistakes That Cause a Slice"},
		{Slug: "clubs-in-bag", Title: "How Many Clubs Are Allowed in a Golf Bag"},
		{Slug: "swing-path", Title: "Understanding Your Swing Path"},
	}
}

func TestScoreAcceptsOnlyHighScores(t *testing.T) {
	mock := testutil.NewMockLLM(`[
		{"score": 9, "anchors": ["grip pressure mistakes", "golf"], "anti": ["grip on the cart"], "intent": "how grip pressure changes face angle"},
		{"score": 2, "anchors": [], "anti": [], "intent": ""},
		{"score": 8, "anchors": ["out-to-in swing path"], "anti": [], "intent": "swing path basics"}
	]`)
	scorer := NewLLMScorer(mock, core.DefaultSettings(), nil)

	scored := scorer.Score(context.Background(), source, testCandidates())
	if len(scored) != 2 {
		t.Fatalf("Expected 2 accepted candidates, got %d", len(scored))
	}
	if scored[0].Slug != "grip-pressure" || scored[1].Slug != "swing-path" {
		t.Errorf("Order not preserved: %+v", scored)
	}
	if len(scored[0].AnchorPatterns) != 1 || scored[0].AnchorPatterns[0] != "grip pressure mistakes" {
		t.Errorf("Generic anchors should be filtered, got %v", scored[0].AnchorPatterns)
	}
	if scored[0].AntiPatterns[0] != "grip on the cart" || scored[0].SemanticIntent == "" {
		t.Errorf("Anti patterns and intent should be carried, got %+v", scored[0])
	}
	if scored[0].Fallback {
		t.Error("Judged candidates are not fallback")
	}
	if mock.CallCount() != 1 {
		t.Errorf("Expected exactly one judgment call, got %d", mock.CallCount())
	}
}

func TestScoreRequestShape(t *testing.T) {
	mock := testutil.NewMockLLM(`[]`)
	settings := core.DefaultSettings()
	NewLLMScorer(mock, settings, nil).Score(context.Background(), source, testCandidates())

	if mock.CallCount() != 1 {
		t.Fatalf("Expected one call, got %d", mock.CallCount())
	}
	opts := mock.Options[0]
	if opts.MaxTokens != settings.ScoringMaxTokens || opts.Operation != "scoring" {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.ResponseSchema == nil || opts.ResponseSchema.Type != genai.TypeArray {
		t.Error("Expected array response schema")
	}
	prompt := mock.Prompts[0]
	for _, want := range []string{"How to Fix Your Slice", "Straighten your ball flight", `1. "Grip Pressure`, `3. "Understanding Your Swing Path"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestScoreFallsBackToExtractedAnchors(t *testing.T) {
	// Relevant but every suggested anchor is generic
	mock := testutil.NewMockLLM(`[{"score": 9, "anchors": ["golf tips"], "anti": [], "intent": "x"}]`)
	scorer := NewLLMScorer(mock, core.DefaultSettings(), nil)

	scored := scorer.Score(context.Background(), source, []core.Candidate{
		{Slug: "grip-pressure", Title: "Grip Pressure Mistakes That Cause a Slice"},
	})
	if len(scored) != 1 {
		t.Fatalf("Expected candidate kept with extracted anchors, got %d", len(scored))
	}
	for _, a := range scored[0].AnchorPatterns {
		if len(strings.Fields(a)) < 2 {
			t.Errorf("Extracted anchors must pass the quality filter, got %q", a)
		}
	}
}

func TestScoreDropsCandidateWithoutSayableAnchor(t *testing.T) {
	mock := testutil.NewMockLLM(`[{"score": 10, "anchors": ["The Masters"], "anti": [], "intent": "x"}]`)
	scorer := NewLLMScorer(mock, core.DefaultSettings(), nil)

	scored := scorer.Score(context.Background(), source, []core.Candidate{{Slug: "masters", Title: "Masters"}})
	if len(scored) != 0 {
		t.Errorf("Expected candidate dropped, got %+v", scored)
	}
}

func TestScoreFailsOpen(t *testing.T) {
	tests := []struct {
		name string
		mock *testutil.MockLLM
	}{
		{"service error", &testutil.MockLLM{ShouldFail: true}},
		{"unparsable", testutil.NewMockLLM("I cannot help with that")},
		{"length mismatch", testutil.NewMockLLM(`[{"score": 9, "anchors": ["grip pressure mistakes"]}]`)},
		{"wrong types", testutil.NewMockLLM(`[{"score": "high"}, {}, {}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewLLMScorer(tt.mock, core.DefaultSettings(), nil)
			candidates := testCandidates()
			scored := scorer.Score(context.Background(), source, candidates)

			if len(scored) != len(candidates) {
				t.Fatalf("Fail-open must keep all candidates, got %d", len(scored))
			}
			for i, sc := range scored {
				if sc.Slug != candidates[i].Slug {
					t.Errorf("Order changed at %d", i)
				}
				if !sc.Fallback || len(sc.AnchorPatterns) == 0 {
					t.Errorf("Expected fallback anchors, got %+v", sc)
				}
				if len(sc.AntiPatterns) != 0 || sc.SemanticIntent != "" {
					t.Errorf("Fallback carries no anti patterns or intent, got %+v", sc)
				}
			}
		})
	}
}

func TestScoreFencedResponse(t *testing.T) {
	mock := testutil.NewMockLLM("```json\n[{\"score\": 8, \"anchors\": [\"grip pressure mistakes\"], \"anti\": [], \"intent\": \"grip\"}]\n```")
	scored := NewLLMScorer(mock, core.DefaultSettings(), nil).Score(context.Background(), source, testCandidates()[:1])
	if len(scored) != 1 || scored[0].Fallback {
		t.Errorf("Fenced JSON should parse, got %+v", scored)
	}
}

func TestScoreTimeout(t *testing.T) {
	settings := core.DefaultSettings()
	settings.ScoringTimeout = 20 * time.Millisecond
	mock := &testutil.MockLLM{Block: true}

	start := time.Now()
	scored := NewLLMScorer(mock, settings, nil).Score(context.Background(), source, testCandidates())
	if time.Since(start) > 2*time.Second {
		t.Error("Scoring should be bounded by the timeout")
	}
	if len(scored) != 3 || !scored[0].Fallback {
		t.Errorf("Timeout should fail open, got %+v", scored)
	}
}

func TestScoreRecordsRejections(t *testing.T) {
	m := metrics.New()
	mock := testutil.NewMockLLM(`[{"score": 3, "anchors": [], "anti": [], "intent": ""}]`)
	NewLLMScorer(mock, core.DefaultSettings(), m).Score(context.Background(), source, testCandidates()[:1])

	count, err := promtestutil.GatherAndCount(m.Registry(), "interlink_link_rejections_total")
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected one rejection series, got %d", count)
	}
}

func TestScoreEmptyInput(t *testing.T) {
	mock := testutil.NewMockLLM(`[]`)
	if got := NewLLMScorer(mock, core.DefaultSettings(), nil).Score(context.Background(), source, nil); got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}
	if mock.CallCount() != 0 {
		t.Error("No judgment call for empty input")
	}
}

func TestFallbackScorer(t *testing.T) {
	scored := NewFallbackScorer(core.Settings{}).Score(context.Background(), source, testCandidates())
	if len(scored) != 3 {
		t.Fatalf("Expected all candidates, got %d", len(scored))
	}
	if scored[0].RelevanceScore != fallbackScore || !scored[0].Fallback {
		t.Errorf("Unexpected fallback candidate %+v", scored[0])
	}
}
