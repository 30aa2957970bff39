// Package sink holds recommendation sinks that need no external transport
// plus the fan-out used to combine them.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// Multi delivers to every sink in order. One failing sink does not stop the
// others; all failures are joined.
type Multi struct {
	sinks []outbound.RecommendationSink
}

func NewMulti(sinks ...outbound.RecommendationSink) *Multi {
	return &Multi{sinks: sinks}
}

var _ outbound.RecommendationSink = (*Multi)(nil)

func (m *Multi) Name() string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (m *Multi) Deliver(ctx context.Context, rec model.Recommendation) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, rec); err != nil {
			var delErr *model.DeliveryError
			if !errors.As(err, &delErr) {
				err = &model.DeliveryError{Sink: s.Name(), Err: err}
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes recommendations to the structured log instead of sending them.
// Used in local development when no delivery target is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

var _ outbound.RecommendationSink = (*Log)(nil)

func (l *Log) Name() string { return "log" }

func (l *Log) Deliver(_ context.Context, rec model.Recommendation) error {
	l.logger.Info("recommendation",
		"id", rec.ID,
		"failed", rec.Failed,
		"provider", rec.Provider,
		"model", rec.Model,
		"text", rec.Text,
	)
	return nil
}

// Archive stores every delivered recommendation in a repository.
type Archive struct {
	repo outbound.RecommendationRepository
}

func NewArchive(repo outbound.RecommendationRepository) *Archive {
	return &Archive{repo: repo}
}

var _ outbound.RecommendationSink = (*Archive)(nil)

func (a *Archive) Name() string { return "archive" }

func (a *Archive) Deliver(ctx context.Context, rec model.Recommendation) error {
	if _, err := a.repo.Create(ctx, rec); err != nil {
		return &model.DeliveryError{Sink: a.Name(), Err: fmt.Errorf("archiving %s: %w", rec.ID, err)}
	}
	return nil
}
