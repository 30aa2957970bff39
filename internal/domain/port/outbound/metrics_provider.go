package outbound

import (
	"context"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

// MetricsProvider returns the current infrastructure health snapshot. An
// empty snapshot with a nil error means "no data right now".
type MetricsProvider interface {
	Name() string
	Get(ctx context.Context) (model.MetricsSnapshot, error)
}
