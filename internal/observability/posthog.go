// Package observability sends product analytics events about link changes.
package observability

import (
	"context"
	"fmt"

	"interlink/internal/config"
	"interlink/internal/logger"

	"github.com/posthog/posthog-go"
	"github.com/rs/zerolog"
)

// distinctID is used for events emitted by the service itself.
const distinctID = "interlink"

// sink is the subset of posthog.Client the tracker needs.
type sink interface {
	Enqueue(posthog.Message) error
	Close() error
}

// PostHogClient wraps the PostHog SDK for product analytics
type PostHogClient struct {
	client  sink
	enabled bool
	log     zerolog.Logger
}

// EventProperties contains properties for an event
type EventProperties map[string]interface{}

// NewPostHogClient creates a PostHog client. A disabled configuration yields
// a client whose methods are no-ops.
func NewPostHogClient(cfg config.PostHog) (*PostHogClient, error) {
	log := logger.Component("posthog")
	if !cfg.Enabled {
		return &PostHogClient{enabled: false, log: log}, nil
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PostHog enabled but missing API key")
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{
		Endpoint: cfg.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &PostHogClient{client: client, enabled: true, log: log}, nil
}

// Disabled returns a client that drops every event.
func Disabled() *PostHogClient {
	return &PostHogClient{enabled: false, log: logger.Component("posthog")}
}

// IsEnabled returns whether PostHog tracking is enabled
func (p *PostHogClient) IsEnabled() bool {
	return p != nil && p.enabled
}

// Capture sends an event to PostHog. Failures are logged, never returned to
// the linking pipeline.
func (p *PostHogClient) Capture(ctx context.Context, event string, properties EventProperties) {
	if !p.IsEnabled() {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	if err := p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	}); err != nil {
		p.log.Warn().Err(err).Str("event", event).Msg("failed to enqueue analytics event")
	}
}

// TrackSuggestions records a suggestion session.
func (p *PostHogClient) TrackSuggestions(ctx context.Context, articleID string, candidates, suggestions int, fallback bool) {
	p.Capture(ctx, "link_suggestions_generated", EventProperties{
		"article_id":  articleID,
		"candidates":  candidates,
		"suggestions": suggestions,
		"fallback":    fallback,
	})
}

// TrackLinksApplied records the outcome of one apply request.
func (p *PostHogClient) TrackLinksApplied(ctx context.Context, articleID string, applied, failed, rejected int) {
	p.Capture(ctx, "internal_links_applied", EventProperties{
		"article_id": articleID,
		"applied":    applied,
		"failed":     failed,
		"rejected":   rejected,
	})
}

// TrackLinksRemoved records a removal.
func (p *PostHogClient) TrackLinksRemoved(ctx context.Context, articleID string, removed int, scope string) {
	p.Capture(ctx, "internal_links_removed", EventProperties{
		"article_id": articleID,
		"removed":    removed,
		"scope":      scope, // "all" or "single"
	})
}

// TrackLedgerSync records a ledger rebuild.
func (p *PostHogClient) TrackLedgerSync(ctx context.Context, articleID string, internal, external int) {
	p.Capture(ctx, "link_ledger_synced", EventProperties{
		"article_id": articleID,
		"internal":   internal,
		"external":   external,
	})
}

// Close flushes pending events.
func (p *PostHogClient) Close() error {
	if !p.IsEnabled() {
		return nil
	}
	return p.client.Close()
}
