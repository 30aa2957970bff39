package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/inbound"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// ErrEmptyRecommendation rejects a pushed recommendation without text.
var ErrEmptyRecommendation = errors.New("recommendation text is required")

// Inbox keeps the most recent recommendation pushed over the API and
// optionally archives every one.
type Inbox struct {
	repo   outbound.RecommendationRepository
	logger *slog.Logger

	mu     sync.RWMutex
	latest *model.Recommendation
}

// NewInbox creates an Inbox. repo may be nil.
func NewInbox(repo outbound.RecommendationRepository, logger *slog.Logger) *Inbox {
	return &Inbox{repo: repo, logger: logger}
}

var _ inbound.RecommendationReceiverPort = (*Inbox)(nil)

// Accept implements inbound.RecommendationReceiverPort.
func (i *Inbox) Accept(ctx context.Context, text string) (model.Recommendation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Recommendation{}, ErrEmptyRecommendation
	}
	rec := model.NewRecommendation(text, text == FailedRecommendationText)

	if i.repo != nil {
		saved, err := i.repo.Create(ctx, rec)
		if err != nil {
			return model.Recommendation{}, fmt.Errorf("archive recommendation: %w", err)
		}
		rec = saved
	}

	i.mu.Lock()
	i.latest = &rec
	i.mu.Unlock()

	i.logger.Info("recommendation received", "recommendation", rec.ID, "failed", rec.Failed)
	return rec, nil
}

// Latest implements inbound.RecommendationReceiverPort.
func (i *Inbox) Latest() (model.Recommendation, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.latest == nil {
		return model.Recommendation{}, false
	}
	return *i.latest, true
}
