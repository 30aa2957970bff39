package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
	"github.com/jonny/serviceops-ai/internal/domain/prompt"
)

// --- mock LLM ---

type mockLLM struct {
	mu       sync.Mutex
	requests []outbound.CompletionRequest
	reply    func(n int, req outbound.CompletionRequest) (string, error)
}

func (m *mockLLM) Complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	reply := m.reply
	m.mu.Unlock()

	if reply == nil {
		return "ok", nil
	}
	return reply(n, req)
}

func (m *mockLLM) HealthCheck(_ context.Context) error { return nil }

func (m *mockLLM) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{Provider: "mock", Model: "mock-1"}, nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLM) request(i int) outbound.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

var _ outbound.LLMProvider = (*mockLLM)(nil)

func failingLLM(err error) *mockLLM {
	return &mockLLM{reply: func(int, outbound.CompletionRequest) (string, error) { return "", err }}
}

// --- mock metrics provider ---

type mockMetrics struct {
	mu       sync.Mutex
	snapshot model.MetricsSnapshot
	err      error
	errOn    map[int]error
	calls    int
}

func (m *mockMetrics) Name() string { return "mock" }

func (m *mockMetrics) Get(_ context.Context) (model.MetricsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.calls
	m.calls++
	if err, ok := m.errOn[n]; ok {
		return model.MetricsSnapshot{}, err
	}
	if m.err != nil {
		return model.MetricsSnapshot{}, m.err
	}
	return m.snapshot, nil
}

func (m *mockMetrics) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ outbound.MetricsProvider = (*mockMetrics)(nil)

// --- mock sink ---

type mockSink struct {
	mu        sync.Mutex
	delivered []model.Recommendation
	err       error
}

func (s *mockSink) Name() string { return "mock-sink" }

func (s *mockSink) Deliver(_ context.Context, rec model.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, rec)
	return nil
}

func (s *mockSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

var _ outbound.RecommendationSink = (*mockSink)(nil)

// --- mock repositories ---

type mockCycleRepo struct {
	mu      sync.Mutex
	reports []model.CycleReport
	err     error
}

func (r *mockCycleRepo) Create(_ context.Context, report model.CycleReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, report)
	return nil
}

func (r *mockCycleRepo) List(_ context.Context, _ outbound.CycleFilter, _ outbound.PageRequest) (outbound.PageResult[model.CycleReport], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return outbound.PageResult[model.CycleReport]{Items: r.reports, TotalCount: int64(len(r.reports))}, nil
}

var _ outbound.CycleRepository = (*mockCycleRepo)(nil)

type mockRecommendationRepo struct {
	saved []model.Recommendation
	err   error
}

func (r *mockRecommendationRepo) Create(_ context.Context, rec model.Recommendation) (model.Recommendation, error) {
	if r.err != nil {
		return model.Recommendation{}, r.err
	}
	r.saved = append(r.saved, rec)
	return rec, nil
}

func (r *mockRecommendationRepo) GetByID(_ context.Context, id string) (model.Recommendation, error) {
	for _, rec := range r.saved {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.Recommendation{}, errors.New("not found")
}

func (r *mockRecommendationRepo) List(_ context.Context, _ outbound.RecommendationFilter, _ outbound.PageRequest) (outbound.PageResult[model.Recommendation], error) {
	return outbound.PageResult[model.Recommendation]{Items: r.saved, TotalCount: int64(len(r.saved))}, nil
}

var _ outbound.RecommendationRepository = (*mockRecommendationRepo)(nil)

// --- mock composer ---

type mockComposer struct {
	mu    sync.Mutex
	calls int
	fn    func(model.MetricsSnapshot) (model.Recommendation, error)
}

func (c *mockComposer) Compose(_ context.Context, snapshot model.MetricsSnapshot) (model.Recommendation, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.fn == nil {
		return model.NewRecommendation("scale out", false), nil
	}
	return c.fn(snapshot)
}

func (c *mockComposer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustBuilder() *prompt.Builder {
	b, err := prompt.NewBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

func warningSnapshot() model.MetricsSnapshot {
	return model.MetricsSnapshot{Records: []model.MetricsRecord{{
		Environment: "Production",
		Region:      "West US 2",
		Services: []model.ServiceMetric{{
			Name: "checkout",
			Fields: []model.MetricField{
				{Name: "status", Value: model.StatusValue(model.HealthStatusWarning)},
				{Name: "ErrorRate", Value: model.NumberValue(4.5)},
			},
		}},
	}}}
}
