package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
	"github.com/jonny/serviceops-ai/internal/domain/prompt"
)

// FailedRecommendationText is delivered in place of a recommendation when the
// LLM call fails.
const FailedRecommendationText = "Error fetching recommendation from the LLM provider."

const defaultRecommendationMaxTokens = 300

var errEmptyCompletion = errors.New("empty completion")

// ComposerConfig bounds the recommendation call.
type ComposerConfig struct {
	MaxTokens int
	Timeout   time.Duration
}

// Composer turns a metrics snapshot into a recommendation.
type Composer struct {
	llm     outbound.LLMProvider
	builder *prompt.Builder
	config  ComposerConfig
	logger  *slog.Logger
}

// NewComposer creates a Composer. Zero config values fall back to defaults.
func NewComposer(llm outbound.LLMProvider, builder *prompt.Builder, cfg ComposerConfig, logger *slog.Logger) *Composer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultRecommendationMaxTokens
	}
	return &Composer{llm: llm, builder: builder, config: cfg, logger: logger}
}

// Compose returns model.ErrNoData for an empty snapshot without calling the
// LLM. An LLM failure is logged and turned into a Failed recommendation
// carrying FailedRecommendationText; it is never returned as an error.
func (c *Composer) Compose(ctx context.Context, snapshot model.MetricsSnapshot) (model.Recommendation, error) {
	if snapshot.IsEmpty() {
		return model.Recommendation{}, model.ErrNoData
	}

	persona, err := c.builder.Persona()
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("render persona: %w", err)
	}
	body, err := c.builder.BuildRecommendationPrompt(snapshot)
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("build recommendation prompt: %w", err)
	}

	req := outbound.CompletionRequest{
		Messages: []outbound.Message{
			{Role: string(model.MessageRoleSystem), Content: persona},
			{Role: string(model.MessageRoleUser), Content: body},
		},
		MaxTokens: c.config.MaxTokens,
	}

	start := time.Now()
	text, err := complete(ctx, c.llm, "recommendation", c.config.Timeout, req)
	latencyMs := time.Since(start).Milliseconds()

	info, infoErr := c.llm.ModelInfo(ctx)
	if infoErr != nil {
		c.logger.Debug("model info unavailable", "error", infoErr)
	}
	if err != nil {
		c.logger.Error("recommendation request failed", "error", err, "provider", info.Provider)
		return model.NewRecommendation(FailedRecommendationText, true).
			WithProvenance(info.Provider, info.Model, latencyMs), nil
	}

	return model.NewRecommendation(text, false).
		WithProvenance(info.Provider, info.Model, latencyMs), nil
}

// complete performs one bounded LLM call and records its metrics. Every
// failure comes back as *model.LLMRequestError.
func complete(
	ctx context.Context,
	llm outbound.LLMProvider,
	op string,
	timeout time.Duration,
	req outbound.CompletionRequest,
) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := llm.Complete(ctx, req)
	llmCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = errEmptyCompletion
		}
	}
	if err != nil {
		llmCallsTotal.WithLabelValues(op, resultError).Inc()
		return "", &model.LLMRequestError{Op: op, Err: err}
	}
	llmCallsTotal.WithLabelValues(op, resultSuccess).Inc()
	return text, nil
}
