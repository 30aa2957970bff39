package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// DefaultPollingInterval is used when no interval is configured.
const DefaultPollingInterval = 300 * time.Second

// RecommendationComposer is what the scheduler needs from a Composer.
type RecommendationComposer interface {
	Compose(ctx context.Context, snapshot model.MetricsSnapshot) (model.Recommendation, error)
}

// Scheduler drives the fetch, compose, deliver, sleep cycle. A failing cycle
// never stops the loop.
type Scheduler struct {
	metrics  outbound.MetricsProvider
	composer RecommendationComposer
	sink     outbound.RecommendationSink
	cycles   outbound.CycleRepository
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. cycles may be nil.
func NewScheduler(
	metrics outbound.MetricsProvider,
	composer RecommendationComposer,
	sink outbound.RecommendationSink,
	cycles outbound.CycleRepository,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollingInterval
	}
	return &Scheduler{
		metrics:  metrics,
		composer: composer,
		sink:     sink,
		cycles:   cycles,
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the sleep between cycles.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("polling scheduler started", "interval", s.interval, "provider", s.metrics.Name(), "sink", s.sink.Name())
	for {
		if ctx.Err() != nil {
			break
		}
		s.RunCycle(ctx)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	s.logger.Info("polling scheduler stopped")
	return nil
}

// RunCycle performs one isolated cycle. Errors and panics are converted into
// the returned report.
func (s *Scheduler) RunCycle(ctx context.Context) (report model.CycleReport) {
	report = model.NewCycleReport()
	defer func() {
		if r := recover(); r != nil {
			report = report.Finish(model.CycleOutcomeFailed, fmt.Sprintf("panic: %v", r))
		}
		s.observe(ctx, report)
	}()
	return s.runCycle(ctx, report)
}

func (s *Scheduler) runCycle(ctx context.Context, report model.CycleReport) model.CycleReport {
	snapshot, err := s.metrics.Get(ctx)
	if err != nil {
		return report.Finish(model.CycleOutcomeFailed, fmt.Sprintf("fetch metrics: %v", err))
	}
	if snapshot.IsEmpty() {
		return report.Finish(model.CycleOutcomeSkipped, model.ErrNoData.Error())
	}

	rec, err := s.composer.Compose(ctx, snapshot)
	if errors.Is(err, model.ErrNoData) {
		return report.Finish(model.CycleOutcomeSkipped, err.Error())
	}
	if err != nil {
		return report.Finish(model.CycleOutcomeFailed, fmt.Sprintf("compose: %v", err))
	}
	report.RecommendationID = rec.ID

	if err := s.sink.Deliver(ctx, rec); err != nil {
		sinkName := s.sink.Name()
		var delErr *model.DeliveryError
		if errors.As(err, &delErr) {
			sinkName = delErr.Sink
		}
		deliveryFailures.WithLabelValues(sinkName).Inc()
		return report.Finish(model.CycleOutcomeFailed, fmt.Sprintf("deliver: %v", err))
	}

	detail := ""
	if rec.Failed {
		detail = "llm request failed, placeholder delivered"
	}
	return report.Finish(model.CycleOutcomeDelivered, detail)
}

func (s *Scheduler) observe(ctx context.Context, report model.CycleReport) {
	cyclesTotal.WithLabelValues(string(report.Outcome)).Inc()
	cycleDuration.Observe(report.Duration.Seconds())

	attrs := []any{"cycle", report.ID, "outcome", report.Outcome, "duration", report.Duration}
	if report.Detail != "" {
		attrs = append(attrs, "detail", report.Detail)
	}
	switch report.Outcome {
	case model.CycleOutcomeFailed:
		s.logger.Error("polling cycle failed", attrs...)
	case model.CycleOutcomeSkipped:
		s.logger.Warn("polling cycle skipped", attrs...)
	default:
		s.logger.Info("polling cycle completed", attrs...)
	}

	if s.cycles == nil {
		return
	}
	if err := s.cycles.Create(context.WithoutCancel(ctx), report); err != nil {
		s.logger.Warn("failed to record cycle", "cycle", report.ID, "error", err)
	}
}
