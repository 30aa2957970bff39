package prompt

import (
	"strings"
	"testing"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func service(name string, fields ...model.MetricField) model.ServiceMetric {
	return model.ServiceMetric{Name: name, Fields: fields}
}

func field(name string, v model.MetricValue) model.MetricField {
	return model.MetricField{Name: name, Value: v}
}

func testSnapshot() model.MetricsSnapshot {
	return model.MetricsSnapshot{Records: []model.MetricsRecord{{
		Environment: "Production",
		Region:      "West US 2",
		Services: []model.ServiceMetric{
			service("API_Management",
				field("TotalRequests", model.NumberValue(10000)),
				field("5xxResponseCount", model.NumberValue(120)),
				field("status", model.StatusValue(model.HealthStatusWarning)),
			),
			service("Client",
				field("ResponseTimeMs", model.PercentilesValue(model.Percentile{Name: "P50", Value: 180})),
				field("status", model.StatusValue(model.HealthStatusWarning)),
				field("FrontendTimeoutRate", model.NumberValue(1.1)),
			),
			service("Gateway",
				field("status", model.StatusValue(model.HealthStatusHealthy)),
				field("Tier", model.TextValue("premium")),
			),
		},
	}}}
}

func TestDigest_OneLinePerNumericService(t *testing.T) {
	got := Digest(testSnapshot())
	lines := strings.Split(got, "\n")

	want := []string{
		"API_Management - TotalRequests: 10000",
		"Client - FrontendTimeoutRate: 1.1",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestDigest_StatusFirstIsSkipped(t *testing.T) {
	snap := model.MetricsSnapshot{Records: []model.MetricsRecord{{
		Services: []model.ServiceMetric{
			service("svc",
				field("status", model.StatusValue(model.HealthStatusWarning)),
				field("ErrorRate", model.NumberValue(4.5)),
			),
		},
	}}}
	if got := Digest(snap); got != "svc - ErrorRate: 4.5" {
		t.Errorf("Digest = %q", got)
	}
}

func TestDigest_Empty(t *testing.T) {
	if got := Digest(model.MetricsSnapshot{}); got != NoMetricsDigest {
		t.Errorf("Digest(empty) = %q, want %q", got, NoMetricsDigest)
	}
}

func TestBuildRecommendationPrompt(t *testing.T) {
	b := newTestBuilder(t)

	out, err := b.BuildRecommendationPrompt(testSnapshot())
	if err != nil {
		t.Fatalf("BuildRecommendationPrompt: %v", err)
	}

	if strings.Count(out, "####") != 2 {
		t.Errorf("expected two delimiters, got prompt:\n%s", out)
	}
	checks := []string{
		`"API_Management"`,
		`"TotalRequests": 10000`,
		`"West US 2"`,
		"potential risks",
		"prioritized action steps",
		"short and concise",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("recommendation prompt missing %q", want)
		}
	}

	// Snapshot must sit between the delimiters, instructions after.
	parts := strings.Split(out, "####")
	if !strings.Contains(parts[1], "API_Management") {
		t.Error("metrics should be enclosed by the delimiters")
	}
	if !strings.Contains(parts[2], "prioritized action steps") {
		t.Error("instructions should follow the closing delimiter")
	}
}

func TestBuildChatSystemPrompt(t *testing.T) {
	b := newTestBuilder(t)

	out, err := b.BuildChatSystemPrompt(testSnapshot())
	if err != nil {
		t.Fatalf("BuildChatSystemPrompt: %v", err)
	}

	checks := []string{
		"You are ServiceOps AI",
		"Always check current metrics before making recommendations",
		"Prioritize critical issues",
		"specific, actionable steps",
		"cost optimization",
		"Maintain context from previous interactions",
		"Total Services Being Monitored: 3",
		"API_Management - TotalRequests: 10000",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("chat system prompt missing %q", want)
		}
	}
}

func TestBuildChatSystemPrompt_NoMetrics(t *testing.T) {
	b := newTestBuilder(t)

	out, err := b.BuildChatSystemPrompt(model.MetricsSnapshot{})
	if err != nil {
		t.Fatalf("BuildChatSystemPrompt: %v", err)
	}
	if !strings.Contains(out, NoMetricsDigest) {
		t.Error("prompt should say no metrics are available")
	}
}

func TestPersona(t *testing.T) {
	b := newTestBuilder(t)

	out, err := b.Persona()
	if err != nil {
		t.Fatalf("Persona: %v", err)
	}
	if !strings.HasPrefix(out, "You are ServiceOps AI") {
		t.Errorf("unexpected persona: %q", out)
	}
	if strings.Contains(out, "Current System State") {
		t.Error("persona must not include the live state block")
	}
}
