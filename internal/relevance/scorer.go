// Package relevance rates catalog candidates against a source article and
// proposes anchor phrases for the ones worth linking.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"interlink/internal/anchors"
	"interlink/internal/core"
	"interlink/internal/llm"
	"interlink/internal/logger"
	"interlink/internal/metrics"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// LLMScorer asks the judgment service to rate all candidates in one request.
type LLMScorer struct {
	llm      llm.TextGenerator
	settings core.Settings
	filter   *anchors.Filter
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewLLMScorer creates a scorer backed by gen. m may be nil.
func NewLLMScorer(gen llm.TextGenerator, settings core.Settings, m *metrics.Metrics) *LLMScorer {
	settings = settings.WithDefaults()
	return &LLMScorer{
		llm:      gen,
		settings: settings,
		filter:   anchors.NewFilter(settings.GenericAnchors...),
		metrics:  m,
		log:      logger.Component("relevance"),
	}
}

// CreateEvaluationSchema returns the response schema for a scoring batch
func CreateEvaluationSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: "One evaluation per candidate, in the order the candidates were listed",
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {
					Type:        genai.TypeInteger,
					Description: "Relevance from 1 to 10",
				},
				"anchors": {
					Type:        genai.TypeArray,
					Description: "2-4 specific anchor phrases of 2-5 words",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
				"anti": {
					Type:        genai.TypeArray,
					Description: "Look-alike phrases with a different meaning",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
				"intent": {
					Type:        genai.TypeString,
					Description: "What the candidate teaches, 5-10 words",
				},
			},
			Required: []string{"score", "anchors", "anti", "intent"},
		},
	}
}

// Score implements Scorer
func (s *LLMScorer) Score(ctx context.Context, source Source, candidates []core.Candidate) []core.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	evaluations, err := s.evaluate(ctx, source, candidates)
	if err != nil {
		s.log.Warn().Err(err).
			Str("topic", source.Topic).
			Int("candidates", len(candidates)).
			Msg("Relevance scoring unavailable, using fallback anchors")
		return fallback(candidates, s.settings)
	}

	var scored []core.ScoredCandidate
	for i, c := range candidates {
		ev := evaluations[i]
		score := int(ev.Score)
		if score < s.settings.MinRelevanceScore {
			s.reject(c, "score", fmt.Sprintf("score %d below %d", score, s.settings.MinRelevanceScore))
			continue
		}

		patterns := s.filter.FilterQuality(trimAll(ev.Anchors))
		if len(patterns) == 0 {
			patterns = s.filter.FilterQuality(anchors.ExtractPatterns(c.Title))
		}
		if len(patterns) == 0 {
			s.reject(c, "quality", "no quality anchor")
			continue
		}

		scored = append(scored, core.ScoredCandidate{
			Candidate:      c,
			RelevanceScore: score,
			AnchorPatterns: patterns,
			AntiPatterns:   trimAll(ev.Anti),
			SemanticIntent: strings.TrimSpace(ev.Intent),
		})
	}

	s.log.Debug().
		Str("topic", source.Topic).
		Int("candidates", len(candidates)).
		Int("accepted", len(scored)).
		Msg("Scored link candidates")
	return scored
}

func (s *LLMScorer) evaluate(ctx context.Context, source Source, candidates []core.Candidate) ([]evaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.ScoringTimeout)
	defer cancel()

	response, err := s.llm.GenerateText(ctx, BuildScoringPrompt(source, candidates), llm.TextGenerationOptions{
		MaxTokens:      s.settings.ScoringMaxTokens,
		ResponseSchema: CreateEvaluationSchema(),
		Operation:      "scoring",
	})
	if err != nil {
		return nil, err
	}

	var evaluations []evaluation
	if err := llm.DecodeJSONArray(response, &evaluations); err != nil {
		return nil, err
	}
	if len(evaluations) != len(candidates) {
		return nil, fmt.Errorf("expected %d evaluations, got %d", len(candidates), len(evaluations))
	}
	return evaluations, nil
}

func (s *LLMScorer) reject(c core.Candidate, stage, reason string) {
	s.metrics.RecordRejection(stage)
	s.log.Debug().
		Str("target", c.Slug).
		Str("stage", stage).
		Str("reason", reason).
		Msg("Candidate rejected")
}

// fallbackScore is reported for candidates that were never rated.
const fallbackScore = 7

// fallback keeps every candidate with anchors from the deterministic
// extractor. Quality-filtered anchors are preferred; when none pass, the raw
// extraction is kept so the candidate is not lost.
func fallback(candidates []core.Candidate, settings core.Settings) []core.ScoredCandidate {
	filter := anchors.NewFilter(settings.GenericAnchors...)
	out := make([]core.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		raw := anchors.ExtractPatterns(c.Title)
		patterns := filter.FilterQuality(raw)
		if len(patterns) == 0 {
			patterns = raw
		}
		out = append(out, core.ScoredCandidate{
			Candidate:      c,
			RelevanceScore: fallbackScore,
			AnchorPatterns: patterns,
			Fallback:       true,
		})
	}
	return out
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
