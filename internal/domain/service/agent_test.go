package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/service"
)

func buildAgent(metrics *mockMetrics, llm *mockLLM) *service.Agent {
	builder := mustBuilder()
	composer := service.NewComposer(llm, builder, service.ComposerConfig{}, discardLogger())
	conv := service.NewConversation(llm, metrics, builder, service.ConversationConfig{}, discardLogger())
	return service.NewAgent(metrics, composer, conv, discardLogger())
}

func TestAgent_Metrics(t *testing.T) {
	agent := buildAgent(&mockMetrics{snapshot: warningSnapshot()}, &mockLLM{})

	snap, err := agent.Metrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ServiceCount() != 1 {
		t.Errorf("ServiceCount = %d, want 1", snap.ServiceCount())
	}
}

func TestAgent_MetricsError(t *testing.T) {
	cause := errors.New("provider down")
	agent := buildAgent(&mockMetrics{err: cause}, &mockLLM{})

	_, err := agent.Metrics(context.Background())
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestAgent_RecommendNoData(t *testing.T) {
	llm := &mockLLM{}
	agent := buildAgent(&mockMetrics{}, llm)

	_, err := agent.Recommend(context.Background())
	if !errors.Is(err, model.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if llm.calls() != 0 {
		t.Error("LLM should not be called")
	}
}

func TestAgent_Recommend(t *testing.T) {
	agent := buildAgent(&mockMetrics{snapshot: warningSnapshot()}, &mockLLM{})

	rec, err := agent.Recommend(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Text != "ok" || rec.Failed {
		t.Errorf("unexpected recommendation: %+v", rec)
	}
}

func TestAgent_RecommendDoesNotTouchHistory(t *testing.T) {
	agent := buildAgent(&mockMetrics{snapshot: warningSnapshot()}, &mockLLM{})

	if _, err := agent.Recommend(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(agent.History()) != 0 {
		t.Error("recommendations must not be retained in chat history")
	}
}

func TestAgent_ChatAndReset(t *testing.T) {
	agent := buildAgent(&mockMetrics{snapshot: warningSnapshot()}, &mockLLM{})

	if got := agent.Chat(context.Background(), "hi"); got != "ok" {
		t.Errorf("Chat = %q, want ok", got)
	}
	if len(agent.History()) != 2 {
		t.Errorf("expected 2 turns, got %d", len(agent.History()))
	}
	agent.ResetHistory()
	if len(agent.History()) != 0 {
		t.Error("expected history to be cleared")
	}
}

// ---- Inbox ----

func TestInbox_AcceptAndLatest(t *testing.T) {
	repo := &mockRecommendationRepo{}
	inbox := service.NewInbox(repo, discardLogger())

	if _, ok := inbox.Latest(); ok {
		t.Fatal("expected no recommendation yet")
	}

	rec, err := inbox.Accept(context.Background(), "  restart the queue worker ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Text != "restart the queue worker" {
		t.Errorf("Text = %q", rec.Text)
	}
	latest, ok := inbox.Latest()
	if !ok || latest.ID != rec.ID {
		t.Errorf("Latest = %+v, want %s", latest, rec.ID)
	}
	if len(repo.saved) != 1 {
		t.Errorf("expected 1 archived recommendation, got %d", len(repo.saved))
	}
}

func TestInbox_FlagsPlaceholder(t *testing.T) {
	inbox := service.NewInbox(nil, discardLogger())

	rec, err := inbox.Accept(context.Background(), service.FailedRecommendationText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Failed {
		t.Error("placeholder text should be flagged as failed")
	}
}

func TestInbox_RejectsEmpty(t *testing.T) {
	inbox := service.NewInbox(nil, discardLogger())

	_, err := inbox.Accept(context.Background(), "   ")
	if !errors.Is(err, service.ErrEmptyRecommendation) {
		t.Errorf("expected ErrEmptyRecommendation, got %v", err)
	}
}

func TestInbox_ArchiveFailure(t *testing.T) {
	inbox := service.NewInbox(&mockRecommendationRepo{err: errors.New("locked")}, discardLogger())

	if _, err := inbox.Accept(context.Background(), "x"); err == nil {
		t.Fatal("expected archive error")
	}
	if _, ok := inbox.Latest(); ok {
		t.Error("failed archive should not update latest")
	}
}
