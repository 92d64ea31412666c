// Package validator checks proposed link insertions against the text they
// would land in: a cheap anti-pattern prefilter, then one batched judgment
// of each anchor in its sentence.
package validator

import (
	"context"
	"fmt"
	"strings"

	"interlink/internal/core"
	"interlink/internal/llm"
	"interlink/internal/logger"
	"interlink/internal/metrics"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Rejection stages
const (
	StageAntiPattern = "anti_pattern"
	StageQuality     = "quality"
	StageContext     = "context"
)

// Rejection explains why an insertion was dropped before application
type Rejection struct {
	AnchorText string `json:"anchor_text"`
	Target     string `json:"target"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

// Validator runs the context checks
type Validator struct {
	llm      llm.TextGenerator
	settings core.Settings
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates a validator. gen may be nil, in which case every insertion
// with context is approved. m may be nil.
func New(gen llm.TextGenerator, settings core.Settings, m *metrics.Metrics) *Validator {
	return &Validator{
		llm:      gen,
		settings: settings.WithDefaults(),
		metrics:  m,
		log:      logger.Component("validator"),
	}
}

// Reject logs, counts and returns a rejection.
func (v *Validator) Reject(ins core.LinkInsertion, stage, reason string) Rejection {
	r := Rejection{AnchorText: ins.AnchorText, Target: ins.URL, Stage: stage, Reason: reason}
	v.metrics.RecordRejection(stage)
	v.log.Info().
		Str("anchor", r.AnchorText).
		Str("target", r.Target).
		Str("stage", r.Stage).
		Str("reason", r.Reason).
		Msg("Link insertion rejected")
	return r
}

// Prefilter drops insertions whose anchor overlaps one of their
// anti-patterns, case-insensitively, with either string containing the other.
func (v *Validator) Prefilter(insertions []core.LinkInsertion) ([]core.LinkInsertion, []Rejection) {
	var kept []core.LinkInsertion
	var rejected []Rejection
	for _, ins := range insertions {
		if anti, ok := MatchAntiPattern(ins.AnchorText, ins.AntiPatterns); ok {
			rejected = append(rejected, v.Reject(ins, StageAntiPattern, fmt.Sprintf("matches anti-pattern %q", anti)))
			continue
		}
		kept = append(kept, ins)
	}
	return kept, rejected
}

// MatchAntiPattern returns the first anti-pattern that overlaps anchor.
func MatchAntiPattern(anchor string, antiPatterns []string) (string, bool) {
	a := strings.ToLower(strings.TrimSpace(anchor))
	if a == "" {
		return "", false
	}
	for _, anti := range antiPatterns {
		p := strings.ToLower(strings.TrimSpace(anti))
		if p == "" {
			continue
		}
		if strings.Contains(a, p) || strings.Contains(p, a) {
			return anti, true
		}
	}
	return "", false
}

type contextItem struct {
	index   int
	context string
}

// Validate judges every insertion that has both a context in blocks and a
// target title, in one request. Insertions without either pass through.
// The approved slice keeps input order.
func (v *Validator) Validate(ctx context.Context, insertions []core.LinkInsertion, blocks []core.Block) ([]core.LinkInsertion, []Rejection) {
	if len(insertions) == 0 {
		return nil, nil
	}

	var judged []contextItem
	for i, ins := range insertions {
		if strings.TrimSpace(ins.TargetTitle) == "" {
			continue
		}
		if c := FindContext(blocks, ins, v.settings.ContextRadius); c != "" {
			judged = append(judged, contextItem{index: i, context: c})
		}
	}
	if len(judged) == 0 || v.llm == nil {
		return insertions, nil
	}

	verdicts, err := v.judge(ctx, insertions, judged)
	if err != nil {
		v.log.Warn().Err(err).Int("items", len(judged)).Msg("Context validation unavailable, approving all")
		return insertions, nil
	}

	approvedByIndex := make(map[int]bool, len(judged))
	for i, item := range judged {
		approvedByIndex[item.index] = verdicts[i]
	}

	var approved []core.LinkInsertion
	var rejected []Rejection
	for i, ins := range insertions {
		ok, wasJudged := approvedByIndex[i]
		if !wasJudged || ok {
			approved = append(approved, ins)
			continue
		}
		rejected = append(rejected, v.Reject(ins, StageContext, "link does not fit its sentence"))
	}
	return approved, rejected
}

func (v *Validator) judge(ctx context.Context, insertions []core.LinkInsertion, items []contextItem) ([]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.settings.ValidationTimeout)
	defer cancel()

	response, err := v.llm.GenerateText(ctx, v.buildPrompt(insertions, items), llm.TextGenerationOptions{
		MaxTokens:      v.settings.ValidationMaxTokens,
		ResponseSchema: &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeBoolean}},
		Operation:      "context_validation",
	})
	if err != nil {
		return nil, err
	}

	var verdicts []bool
	if err := llm.DecodeJSONArray(response, &verdicts); err != nil {
		return nil, err
	}
	if len(verdicts) != len(items) {
		return nil, fmt.Errorf("expected %d verdicts, got %d", len(items), len(verdicts))
	}
	return verdicts, nil
}

func (v *Validator) buildPrompt(insertions []core.LinkInsertion, items []contextItem) string {
	var prompt strings.Builder
	prompt.WriteString("You review proposed internal links. Reject weak or loosely related links.\n\n")

	for i, item := range items {
		ins := insertions[item.index]
		prompt.WriteString(fmt.Sprintf("%d. Anchor: %q | Context: %q | Target: %q\n",
			i+1, ins.AnchorText, truncateRunes(item.context, v.settings.ContextSnippetLength), ins.TargetTitle))
	}

	prompt.WriteString(`
For each link decide:
1. Does the anchor accurately describe what the target teaches?
2. Would a reader at this point in the text want to follow it?
3. Is the link genuinely helpful rather than merely on the same topic?

Answer false when the anchor is generic (a lone proper noun, a vague category
phrase), when the target is only loosely related, or when a reader would
wonder why the link is there.

Example: anchor "grip technique" in "...proper grip technique matters..."
pointing to "How to Grip a Golf Club" is true. Anchor "The Masters" in
"...history of The Masters..." pointing to "When is The Masters" is false.

Respond with ONLY a JSON array of booleans, one per link in order: [true, false]`)

	return prompt.String()
}
