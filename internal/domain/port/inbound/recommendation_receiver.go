package inbound

import (
	"context"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

// RecommendationReceiverPort accepts recommendations pushed by a (possibly
// remote) agent over POST /api/recommendation.
type RecommendationReceiverPort interface {
	Accept(ctx context.Context, text string) (model.Recommendation, error)
	Latest() (model.Recommendation, bool)
}
