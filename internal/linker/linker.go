// Package linker mutates article content: it applies approved link
// insertions and removes internal links, keeping the ledger in step with
// every content write.
package linker

import (
	"interlink/internal/anchors"
	"interlink/internal/core"
	"interlink/internal/ledger"
	"interlink/internal/logger"
	"interlink/internal/metrics"
	"interlink/internal/observability"
	"interlink/internal/persistence"
	"interlink/internal/validator"

	"github.com/rs/zerolog"
)

// ErrInvalidInput is returned when a request is missing a required field.
var ErrInvalidInput = core.ErrInvalidInput

// Linker applies and removes links on stored articles.
type Linker struct {
	db        persistence.Database
	validator *validator.Validator
	quality   *anchors.Filter
	ledger    *ledger.Syncer
	metrics   *metrics.Metrics
	analytics *observability.PostHogClient
	log       zerolog.Logger
}

// Options carries the optional collaborators of a Linker.
type Options struct {
	Metrics   *metrics.Metrics
	Analytics *observability.PostHogClient
}

// New creates a Linker. The validator and syncer are required; opts may be
// zero.
func New(db persistence.Database, v *validator.Validator, syncer *ledger.Syncer, settings core.Settings, opts Options) *Linker {
	analytics := opts.Analytics
	if analytics == nil {
		analytics = observability.Disabled()
	}
	return &Linker{
		db:        db,
		validator: v,
		quality:   anchors.NewFilter(settings.GenericAnchors...),
		ledger:    syncer,
		metrics:   opts.Metrics,
		analytics: analytics,
		log:       logger.Component("linker"),
	}
}
