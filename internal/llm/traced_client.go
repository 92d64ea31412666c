package llm

import (
	"context"
	"time"

	"interlink/internal/logger"
	"interlink/internal/metrics"

	"github.com/rs/zerolog"
)

// TracedClient wraps a TextGenerator with latency logging and metrics.
type TracedClient struct {
	next    TextGenerator
	model   string
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewTracedClient wraps next. Model is only used as a log field.
func NewTracedClient(next TextGenerator, model string, m *metrics.Metrics) *TracedClient {
	return &TracedClient{
		next:    next,
		model:   model,
		metrics: m,
		log:     logger.Component("llm"),
	}
}

// GenerateText generates text with tracing
func (tc *TracedClient) GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error) {
	operation := options.Operation
	if operation == "" {
		operation = "text_generation"
	}

	startTime := time.Now()
	result, err := tc.next.GenerateText(ctx, prompt, options)
	elapsed := time.Since(startTime)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	tc.metrics.ObserveJudgment(operation, outcome, elapsed)

	model := options.Model
	if model == "" {
		model = tc.model
	}
	event := tc.log.Debug()
	if err != nil {
		event = tc.log.Warn().Err(err)
	}
	event.
		Str("operation", operation).
		Str("model", model).
		Int("prompt_tokens_est", estimateTokens(prompt)).
		Int("completion_tokens_est", estimateTokens(result)).
		Int64("latency_ms", elapsed.Milliseconds()).
		Msg("judgment request")

	return result, err
}

// estimateTokens uses the rough four-characters-per-token rule.
func estimateTokens(s string) int {
	return len(s) / 4
}
