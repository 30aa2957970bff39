package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/inbound"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// Agent ties the metrics provider, composer and conversation together and
// implements inbound.AgentPort.
type Agent struct {
	metrics      outbound.MetricsProvider
	composer     RecommendationComposer
	conversation *Conversation
	logger       *slog.Logger
}

// NewAgent creates an Agent with all required dependencies.
func NewAgent(
	metrics outbound.MetricsProvider,
	composer RecommendationComposer,
	conversation *Conversation,
	logger *slog.Logger,
) *Agent {
	return &Agent{
		metrics:      metrics,
		composer:     composer,
		conversation: conversation,
		logger:       logger,
	}
}

// Ensure Agent satisfies the inbound port at compile time.
var _ inbound.AgentPort = (*Agent)(nil)

// Metrics implements inbound.AgentPort.
func (a *Agent) Metrics(ctx context.Context) (model.MetricsSnapshot, error) {
	snapshot, err := a.metrics.Get(ctx)
	if err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("fetch metrics from %s: %w", a.metrics.Name(), err)
	}
	return snapshot, nil
}

// Recommend implements inbound.AgentPort.
func (a *Agent) Recommend(ctx context.Context) (model.Recommendation, error) {
	snapshot, err := a.Metrics(ctx)
	if err != nil {
		return model.Recommendation{}, err
	}
	rec, err := a.composer.Compose(ctx, snapshot)
	if err != nil {
		return model.Recommendation{}, err
	}
	a.logger.Debug("one-shot recommendation composed", "recommendation", rec.ID, "failed", rec.Failed)
	return rec, nil
}

// Chat implements inbound.AgentPort.
func (a *Agent) Chat(ctx context.Context, message string) string {
	return a.conversation.Respond(ctx, message)
}

// History implements inbound.AgentPort.
func (a *Agent) History() []model.ChatTurn {
	return a.conversation.History()
}

// ResetHistory implements inbound.AgentPort.
func (a *Agent) ResetHistory() {
	a.conversation.Reset()
	a.logger.Info("conversation history cleared")
}
