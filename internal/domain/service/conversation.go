package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
	"github.com/jonny/serviceops-ai/internal/domain/prompt"
)

// ChatFallbackText is returned whenever a chat turn cannot be completed.
const ChatFallbackText = "I apologize, but I'm having trouble processing your request at the moment. " +
	"Please try again or check the system metrics directly."

const (
	defaultChatMaxTokens   = 500
	defaultChatTemperature = 0.7
)

// ConversationConfig tunes the chat path.
type ConversationConfig struct {
	HistoryCapacity int
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
}

// Conversation owns the bounded chat history and answers operator questions
// with the live metrics digest as context. It is safe for concurrent use.
type Conversation struct {
	llm     outbound.LLMProvider
	metrics outbound.MetricsProvider
	builder *prompt.Builder
	config  ConversationConfig
	logger  *slog.Logger

	mu      sync.Mutex
	history *model.ConversationHistory
}

// NewConversation creates a Conversation with an empty history.
func NewConversation(
	llm outbound.LLMProvider,
	metrics outbound.MetricsProvider,
	builder *prompt.Builder,
	cfg ConversationConfig,
	logger *slog.Logger,
) *Conversation {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultChatMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultChatTemperature
	}
	return &Conversation{
		llm:     llm,
		metrics: metrics,
		builder: builder,
		config:  cfg,
		logger:  logger,
		history: model.NewConversationHistory(cfg.HistoryCapacity),
	}
}

// Respond answers message. On success the user and assistant turns are
// appended together; on any failure ChatFallbackText is returned and the
// history is left untouched.
func (c *Conversation) Respond(ctx context.Context, message string) string {
	snapshot, err := c.metrics.Get(ctx)
	if err != nil {
		return c.fail("metrics unavailable", err)
	}

	system, err := c.builder.BuildChatSystemPrompt(snapshot)
	if err != nil {
		return c.fail("build chat prompt", err)
	}

	past := c.History()
	messages := make([]outbound.Message, 0, len(past)+2)
	messages = append(messages, outbound.Message{Role: string(model.MessageRoleSystem), Content: system})
	for _, t := range past {
		messages = append(messages, outbound.Message{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, outbound.Message{Role: string(model.MessageRoleUser), Content: message})

	temperature := c.config.Temperature
	reply, err := complete(ctx, c.llm, "chat", c.config.Timeout, outbound.CompletionRequest{
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return c.fail("chat request failed", err)
	}

	c.mu.Lock()
	c.history.Append(
		model.NewChatTurn(model.MessageRoleUser, message),
		model.NewChatTurn(model.MessageRoleAssistant, reply),
	)
	historyLength.Set(float64(c.history.Len()))
	c.mu.Unlock()

	chatTurnsTotal.WithLabelValues(resultSuccess).Inc()
	return reply
}

// History returns a copy of the current turns, oldest first.
func (c *Conversation) History() []model.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Turns()
}

// Reset drops all turns.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.history.Reset()
	historyLength.Set(0)
	c.mu.Unlock()
}

func (c *Conversation) fail(msg string, err error) string {
	chatTurnsTotal.WithLabelValues(resultError).Inc()
	c.logger.Error(msg, "error", err)
	return ChatFallbackText
}
