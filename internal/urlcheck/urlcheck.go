// Package urlcheck verifies link targets before they are inserted: internal
// URLs against the published catalog, external URLs with an HTTP HEAD.
package urlcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"interlink/internal/core"
	"interlink/internal/linkurl"
	"interlink/internal/logger"
	"interlink/internal/persistence"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	userAgent      = "Mozilla/5.0 (compatible; InterlinkValidator/1.0)"
	defaultTimeout = 5 * time.Second
	maxParallel    = 8
)

// Result is the verdict for one URL.
type Result struct {
	URL      string `json:"url"`
	Valid    bool   `json:"valid"`
	Status   int    `json:"status"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Checker validates URLs
type Checker struct {
	articles persistence.ArticleRepository
	urls     *linkurl.Template
	client   *http.Client
	timeout  time.Duration
	log      zerolog.Logger
}

// New creates a checker. A zero timeout uses five seconds.
func New(articles persistence.ArticleRepository, urls *linkurl.Template, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{
		articles: articles,
		urls:     urls,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		log:      logger.Component("urlcheck"),
	}
}

// Check validates urls, deduplicated in first-seen order. Internal URLs
// must name a published article. External URLs are checked in parallel and
// are valid when the final status is below 400. Only a catalog lookup
// failure is returned as an error.
func (c *Checker) Check(ctx context.Context, urls []string) ([]Result, error) {
	unique := dedupe(urls)
	results := make([]Result, len(unique))

	published, err := c.lookupInternal(ctx, unique)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, u := range unique {
		if linkurl.IsInternal(u) {
			results[i] = c.internalResult(u, published)
			continue
		}
		g.Go(func() error {
			results[i] = c.head(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}
	c.log.Debug().Int("urls", len(results)).Int("invalid", invalid).Msg("URLs validated")
	return results, nil
}

func (c *Checker) lookupInternal(ctx context.Context, urls []string) (map[string]core.ArticleSummary, error) {
	var slugs []string
	for _, u := range urls {
		if linkurl.IsInternal(u) {
			if slug := c.urls.SlugFromURL(u); slug != "" {
				slugs = append(slugs, slug)
			}
		}
	}
	if len(slugs) == 0 {
		return nil, nil
	}
	found, err := c.articles.GetBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up internal urls: %w", err)
	}
	return found, nil
}

func (c *Checker) internalResult(u string, published map[string]core.ArticleSummary) Result {
	slug := c.urls.SlugFromURL(u)
	if slug == "" {
		return Result{URL: u, Status: http.StatusBadRequest, Error: "Invalid URL format"}
	}
	if a, ok := published[slug]; ok && a.Status == core.StatusPublished {
		return Result{URL: u, Valid: true, Status: http.StatusOK}
	}
	return Result{URL: u, Status: http.StatusNotFound, Error: "Post not found"}
}

func (c *Checker) head(ctx context.Context, u string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return Result{URL: u, Error: "Invalid URL"}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return Result{URL: u, Error: "Timeout"}
		}
		return Result{URL: u, Error: truncate(err.Error(), 50)}
	}
	defer func() { _ = resp.Body.Close() }()

	r := Result{URL: u, Status: resp.StatusCode, Valid: resp.StatusCode < 400}
	if final := resp.Request.URL.String(); final != u {
		r.Redirect = final
	}
	if !r.Valid {
		r.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return r
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
