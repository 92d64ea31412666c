package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"interlink/internal/config"
	"interlink/internal/llm"
	"interlink/internal/logger"
	"interlink/internal/metrics"
	"interlink/internal/observability"
	"interlink/internal/persistence"
	"interlink/internal/services"
	"interlink/internal/store"
)

// app holds everything a command needs to talk to the engine
type app struct {
	cfg       *config.Config
	db        persistence.Database
	metrics   *metrics.Metrics
	analytics *observability.PostHogClient
	linking   services.LinkingService
}

// sqlHandle is implemented by both store backends
type sqlHandle interface {
	DB() *sql.DB
}

// openApp connects the store, the judgment service and analytics, and wires
// the linking service on top of them.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Get()

	db, err := getDatabase()
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	analytics, err := observability.NewPostHogClient(cfg.PostHog)
	if err != nil {
		db.Close()
		return nil, err
	}

	gen, err := newJudge(ctx, cfg.AI.Gemini, m)
	if err != nil {
		analytics.Close()
		db.Close()
		return nil, err
	}

	linking, err := services.NewLinkingService(db, gen, cfg.Linking.LinkSettings(), services.Options{
		Metrics:         m,
		Analytics:       analytics,
		URLCheckTimeout: cfg.Linking.URLCheckTimeout(),
	})
	if err != nil {
		analytics.Close()
		db.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		db:        db,
		metrics:   m,
		analytics: analytics,
		linking:   linking,
	}, nil
}

func (a *app) Close() {
	if err := a.analytics.Close(); err != nil {
		logger.Warn("Failed to flush analytics", "error", err.Error())
	}
	if err := a.db.Close(); err != nil {
		logger.Warn("Failed to close database", "error", err.Error())
	}
}

// newJudge returns nil when no API key is configured; the engine then runs
// its deterministic fallbacks.
func newJudge(ctx context.Context, cfg config.GeminiConfig, m *metrics.Metrics) (llm.TextGenerator, error) {
	if cfg.APIKey == "" {
		logger.Warn("No Gemini API key configured, using extracted anchors and skipping context validation")
		return nil, nil
	}
	client, err := llm.NewClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewTracedClient(client, client.ModelName(), m), nil
}

// getDatabase opens the configured store
func getDatabase() (persistence.Database, error) {
	cfg := config.GetDatabase()

	switch cfg.Driver {
	case "sqlite":
		s, err := store.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		db, err := persistence.NewPostgresDB(cfg.URL, persistence.PoolOptions{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
