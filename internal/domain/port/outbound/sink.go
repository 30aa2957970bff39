package outbound

import (
	"context"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

// RecommendationSink receives finished recommendations. Delivery is
// fire-and-forget from the scheduler's point of view.
type RecommendationSink interface {
	Name() string
	Deliver(ctx context.Context, rec model.Recommendation) error
}
