package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interlink/internal/backfill"
	"interlink/internal/core"
	"interlink/internal/ledger"
	"interlink/internal/linker"
	"interlink/internal/linkurl"
	"interlink/internal/llm"
	"interlink/internal/metrics"
	"interlink/internal/observability"
	"interlink/internal/persistence"
	"interlink/internal/relevance"
	"interlink/internal/retriever"
	"interlink/internal/urlcheck"
	"interlink/internal/validator"
)

// Options carries the optional collaborators of the linking service
type Options struct {
	Metrics         *metrics.Metrics
	Analytics       *observability.PostHogClient
	URLCheckTimeout time.Duration
}

// linkingService implements the LinkingService interface
type linkingService struct {
	db        persistence.Database
	suggester *retriever.Suggester
	linker    *linker.Linker
	backfill  *backfill.Finder
	checker   *urlcheck.Checker
	analytics *observability.PostHogClient
}

// NewLinkingService wires the linking pipeline. A nil gen disables the
// judgment service: scoring uses extracted anchors and context validation
// approves everything.
func NewLinkingService(db persistence.Database, gen llm.TextGenerator, settings core.Settings, opts Options) (LinkingService, error) {
	settings = settings.WithDefaults()
	urls, err := linkurl.New(settings.URLPattern)
	if err != nil {
		return nil, err
	}

	var scorer relevance.Scorer = relevance.NewFallbackScorer(settings)
	if gen != nil {
		scorer = relevance.NewLLMScorer(gen, settings, opts.Metrics)
	}

	analytics := opts.Analytics
	if analytics == nil {
		analytics = observability.Disabled()
	}

	return &linkingService{
		db:        db,
		suggester: retriever.NewSuggester(retriever.New(db.Articles(), settings), scorer, urls),
		linker: linker.New(db,
			validator.New(gen, settings, opts.Metrics),
			ledger.New(urls, opts.Metrics),
			settings,
			linker.Options{Metrics: opts.Metrics, Analytics: analytics},
		),
		backfill:  backfill.New(db),
		checker:   urlcheck.New(db.Articles(), urls, opts.URLCheckTimeout),
		analytics: analytics,
	}, nil
}

func (s *linkingService) SuggestLinks(ctx context.Context, req SuggestRequest) (*core.SuggestionResult, error) {
	if req.ArticleID != "" {
		article, err := s.db.Articles().Get(ctx, req.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load article %s: %w", req.ArticleID, err)
		}
		if req.Topic == "" {
			req.Topic = article.Title
		}
		if req.Excerpt == "" {
			req.Excerpt = article.Excerpt
		}
		if req.CategoryID == "" {
			req.CategoryID = article.CategoryID
		}
		if req.ExcludeSlug == "" {
			req.ExcludeSlug = article.Slug
		}
	}
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic or post id is required", core.ErrInvalidInput)
	}

	result, err := s.suggester.Suggest(ctx, retriever.Query{
		Topic:       req.Topic,
		Excerpt:     req.Excerpt,
		CategoryID:  req.CategoryID,
		ExcludeSlug: req.ExcludeSlug,
		Limit:       req.Limit,
	})
	if err != nil {
		return nil, err
	}
	s.analytics.TrackSuggestions(ctx, req.ArticleID, result.Candidates, len(result.Suggestions), result.Fallback)
	return result, nil
}

func (s *linkingService) GetArticleForLinking(ctx context.Context, articleID string) (*ArticleForLinking, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, fmt.Errorf("%w: post id is required", core.ErrInvalidInput)
	}
	article, err := s.db.Articles().Get(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load article %s: %w", articleID, err)
	}
	return &ArticleForLinking{
		ID:         article.ID,
		Slug:       article.Slug,
		Title:      article.Title,
		Excerpt:    article.Excerpt,
		CategoryID: article.CategoryID,
		Content:    article.Content,
	}, nil
}

func (s *linkingService) ApplyLinks(ctx context.Context, articleID string, insertions []core.LinkInsertion) (*linker.Report, error) {
	return s.linker.Apply(ctx, articleID, insertions)
}

func (s *linkingService) PreviewLinks(ctx context.Context, articleID string, insertions []core.LinkInsertion) (*linker.Plan, error) {
	return s.linker.Preview(ctx, articleID, insertions)
}

func (s *linkingService) RemoveInternalLinks(ctx context.Context, articleID string) (int, error) {
	return s.linker.RemoveInternalLinks(ctx, articleID)
}

func (s *linkingService) RemoveLink(ctx context.Context, linkID string) (bool, error) {
	return s.linker.RemoveLink(ctx, linkID)
}

func (s *linkingService) CleanupInternalLinks(ctx context.Context, req CleanupRequest) ([]linker.RemovalResult, error) {
	switch {
	case req.All:
		return s.linker.RemoveAllInternalLinks(ctx)
	case len(req.Slugs) > 0:
		return s.linker.RemoveInternalLinksBySlugs(ctx, req.Slugs)
	default:
		return nil, fmt.Errorf("%w: slugs or all is required", core.ErrInvalidInput)
	}
}

func (s *linkingService) SyncLedger(ctx context.Context, articleID string) ([]core.LinkRecord, error) {
	return s.linker.SyncLedger(ctx, articleID)
}

func (s *linkingService) ListLinks(ctx context.Context, articleID string) ([]core.LinkRecord, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, fmt.Errorf("%w: post id is required", core.ErrInvalidInput)
	}
	links, err := s.db.Links().ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

func (s *linkingService) PostsNeedingLinks(ctx context.Context, limit int) (*backfill.Result, error) {
	return s.backfill.PostsNeedingLinks(ctx, limit)
}

func (s *linkingService) ValidateURLs(ctx context.Context, urls []string) ([]urlcheck.Result, error) {
	return s.checker.Check(ctx, urls)
}
