package outbound

import "context"

type Message struct {
	Role    string
	Content string
}

// CompletionRequest is one chat-completion call. A nil Temperature leaves
// the provider default in place.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

type ModelInfo struct {
	Provider    string
	Model       string
	MaxTokens   int
	ContextSize int
}

// LLMProvider abstracts interaction with LLM services.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	HealthCheck(ctx context.Context) error
	ModelInfo(ctx context.Context) (ModelInfo, error)
}
