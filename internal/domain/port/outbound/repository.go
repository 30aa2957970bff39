package outbound

import (
	"context"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

type PageRequest struct {
	Page int
	Size int
	Desc bool
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

type RecommendationFilter struct {
	Failed *bool
	Since  *time.Time
	Until  *time.Time
}

type CycleFilter struct {
	Outcome string
	Since   *time.Time
}

type RecommendationRepository interface {
	Create(ctx context.Context, rec model.Recommendation) (model.Recommendation, error)
	GetByID(ctx context.Context, id string) (model.Recommendation, error)
	List(ctx context.Context, filter RecommendationFilter, page PageRequest) (PageResult[model.Recommendation], error)
}

type CycleRepository interface {
	Create(ctx context.Context, report model.CycleReport) error
	List(ctx context.Context, filter CycleFilter, page PageRequest) (PageResult[model.CycleReport], error)
}
