package inbound

import (
	"context"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

// AgentPort is the surface the HTTP API and chat integrations call into.
type AgentPort interface {
	// Metrics returns the provider's current snapshot.
	Metrics(ctx context.Context) (model.MetricsSnapshot, error)
	// Recommend runs one analysis outside the polling cadence. It returns
	// model.ErrNoData when the provider has nothing to analyse.
	Recommend(ctx context.Context) (model.Recommendation, error)
	// Chat always returns text: either the answer or a fixed apology.
	Chat(ctx context.Context, message string) string
	History() []model.ChatTurn
	ResetHistory()
}
