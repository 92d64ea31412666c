package linker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interlink/internal/content"
	"interlink/internal/core"
	"interlink/internal/persistence"
	"interlink/internal/validator"
)

// Per-insertion failure reasons
const (
	ReasonNotFound      = "not found"
	ReasonMissingField  = "missing field"
	ReasonAlreadyLinked = "already linked"
)

// AppliedLink is an insertion that was written into the content.
type AppliedLink struct {
	AnchorText string `json:"anchor_text"` // As matched in the text, original casing
	URL        string `json:"url"`
	BlockID    string `json:"block_id"`
}

// FailedLink is an insertion that passed validation but could not be placed.
type FailedLink struct {
	AnchorText string `json:"anchor_text"`
	URL        string `json:"url,omitempty"`
	Reason     string `json:"reason"`
}

// Report is the outcome of one apply request.
type Report struct {
	ArticleID    string                `json:"post_id"`
	Applied      []AppliedLink         `json:"applied"`
	Failed       []FailedLink          `json:"failed"`
	Rejected     []validator.Rejection `json:"rejected"`
	TotalTracked int                   `json:"total_links_tracked"`
	Persisted    bool                  `json:"persisted"`
}

// Plan is an apply request evaluated against the current content without
// writing anything.
type Plan struct {
	Report
	Before []core.Block
	After  []core.Block
}

// Preview runs every apply step except persistence.
func (l *Linker) Preview(ctx context.Context, articleID string, insertions []core.LinkInsertion) (*Plan, error) {
	if err := checkRequest(articleID, insertions); err != nil {
		return nil, err
	}
	article, err := l.db.Articles().Get(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load article %s: %w", articleID, err)
	}
	return l.plan(ctx, article, insertions), nil
}

// Apply wraps the first eligible occurrence of each insertion's anchor in a
// link, after the anti-pattern, quality and context checks. Content and
// ledger are written in one transaction, and only when at least one
// insertion was placed.
func (l *Linker) Apply(ctx context.Context, articleID string, insertions []core.LinkInsertion) (*Report, error) {
	plan, err := l.Preview(ctx, articleID, insertions)
	if err != nil {
		return nil, err
	}
	report := &plan.Report

	if len(report.Applied) > 0 {
		err = persistence.WithTx(ctx, l.db, func(tx persistence.Transaction) error {
			if err := tx.Articles().UpdateContent(ctx, articleID, plan.After, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to save content: %w", err)
			}
			records, err := l.ledger.Sync(ctx, tx, articleID, plan.After)
			if err != nil {
				return err
			}
			report.TotalTracked = len(records)
			return nil
		})
		if err != nil {
			return nil, err
		}
		report.Persisted = true
	} else {
		tracked, err := l.db.Links().ListByArticle(ctx, articleID)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		report.TotalTracked = len(tracked)
	}

	l.analytics.TrackLinksApplied(ctx, articleID, len(report.Applied), len(report.Failed), len(report.Rejected))
	l.log.Info().
		Str("article_id", articleID).
		Int("applied", len(report.Applied)).
		Int("failed", len(report.Failed)).
		Int("rejected", len(report.Rejected)).
		Msg("Link insertions processed")
	return report, nil
}

func checkRequest(articleID string, insertions []core.LinkInsertion) error {
	if strings.TrimSpace(articleID) == "" {
		return fmt.Errorf("%w: post id is required", ErrInvalidInput)
	}
	if len(insertions) == 0 {
		return fmt.Errorf("%w: at least one link is required", ErrInvalidInput)
	}
	return nil
}

func (l *Linker) plan(ctx context.Context, article *core.Article, insertions []core.LinkInsertion) *Plan {
	p := &Plan{
		Report: Report{ArticleID: article.ID, Applied: []AppliedLink{}, Failed: []FailedLink{}, Rejected: []validator.Rejection{}},
		Before: article.Content,
		After:  core.CloneBlocks(article.Content),
	}

	var complete []core.LinkInsertion
	for _, ins := range insertions {
		ins.AnchorText = strings.TrimSpace(ins.AnchorText)
		ins.URL = strings.TrimSpace(ins.URL)
		if ins.AnchorText == "" || ins.URL == "" {
			p.fail(l, ins, ReasonMissingField, "missing_field")
			continue
		}
		complete = append(complete, ins)
	}

	kept, rejected := l.validator.Prefilter(complete)
	p.Rejected = append(p.Rejected, rejected...)

	var quality []core.LinkInsertion
	for _, ins := range kept {
		if reason := l.quality.Reason(ins.AnchorText); reason != "" {
			p.Rejected = append(p.Rejected, l.validator.Reject(ins, validator.StageQuality, reason))
			continue
		}
		quality = append(quality, ins)
	}

	approved, rejected := l.validator.Validate(ctx, quality, p.After)
	p.Rejected = append(p.Rejected, rejected...)

	for _, ins := range approved {
		applied, reason := insert(p.After, ins)
		if reason != "" {
			p.fail(l, ins, reason, strings.ReplaceAll(reason, " ", "_"))
			continue
		}
		l.metrics.RecordInsertion("applied")
		p.Applied = append(p.Applied, applied)
	}
	return p
}

func (p *Plan) fail(l *Linker, ins core.LinkInsertion, reason, outcome string) {
	l.metrics.RecordInsertion(outcome)
	l.log.Info().
		Str("anchor", ins.AnchorText).
		Str("target", ins.URL).
		Str("reason", reason).
		Msg("Link insertion failed")
	p.Failed = append(p.Failed, FailedLink{AnchorText: ins.AnchorText, URL: ins.URL, Reason: reason})
}

// insert links the first occurrence of the anchor in tree order. The first
// span that mentions the anchor decides the outcome, so a phrase already
// linked there is never linked again further down.
func insert(blocks []core.Block, ins core.LinkInsertion) (AppliedLink, string) {
	for _, span := range content.Spans(blocks) {
		if ins.BlockID != "" && span.BlockID != ins.BlockID {
			continue
		}
		if content.IsAlreadyLinked(span.Text, ins.AnchorText) {
			return AppliedLink{}, ReasonAlreadyLinked
		}
		start, end, ok := content.FindPhrase(span.Text, ins.AnchorText)
		if !ok {
			continue
		}
		matched := span.Text[start:end]
		content.SetSpan(blocks, span, span.Text[:start]+content.BuildTag(ins.URL, matched)+span.Text[end:])
		return AppliedLink{AnchorText: matched, URL: ins.URL, BlockID: span.BlockID}, ""
	}
	return AppliedLink{}, ReasonNotFound
}
