package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

const DefaultModel = "gpt-4o"

// Config holds configuration for the OpenAI-compatible client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements outbound.LLMProvider against any OpenAI-compatible
// chat-completion endpoint.
type Client struct {
	config Config
	api    *goopenai.Client
}

// NewClient never fails on a missing key; Complete reports
// model.ErrMissingCredential instead.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		config: cfg,
		api:    goopenai.NewClientWithConfig(apiCfg),
	}
}

var _ outbound.LLMProvider = (*Client)(nil)

// Complete implements outbound.LLMProvider.
func (c *Client) Complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	if c.config.APIKey == "" {
		return "", model.ErrMissingCredential
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	body := goopenai.ChatCompletionRequest{
		Model:     c.config.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		body.Temperature = float32(*req.Temperature)
	}

	maxRetries := c.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, body)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("openai returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = fmt.Errorf("openai chat completion: %w", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

// HealthCheck lists models to verify the endpoint and key.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.config.APIKey == "" {
		return model.ErrMissingCredential
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}

// ModelInfo returns metadata about the configured model.
func (c *Client) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{
		Provider: "openai",
		Model:    c.config.Model,
	}, nil
}

// retryable reports whether a failed call may succeed on retry: rate limits,
// server errors and transport failures.
func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
