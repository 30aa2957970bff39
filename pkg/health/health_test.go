package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheck_AllHealthy(t *testing.T) {
	c := NewChecker()
	c.Register("llm", func(context.Context) error { return nil })
	c.Register("metrics", func(context.Context) error { return nil })

	res := c.Check(context.Background())
	if res.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", res.Status)
	}
	if res.Details["llm"] != "ok" || res.Details["metrics"] != "ok" {
		t.Errorf("unexpected details: %v", res.Details)
	}
}

func TestCheck_OneFailing(t *testing.T) {
	c := NewChecker()
	c.Register("llm", func(context.Context) error { return nil })
	c.Register("database", func(context.Context) error { return errors.New("database is locked") })

	res := c.Check(context.Background())
	if res.Status != StatusUnhealthy {
		t.Errorf("Status = %s, want unhealthy", res.Status)
	}
	if res.Details["database"] != "database is locked" {
		t.Errorf("database detail = %q", res.Details["database"])
	}
}

func TestCheck_Timeout(t *testing.T) {
	c := NewChecker().WithTimeout(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	res := c.Check(context.Background())
	if res.Status != StatusUnhealthy {
		t.Errorf("Status = %s, want unhealthy", res.Status)
	}
	if time.Since(start) > time.Second {
		t.Error("check should be bounded by the timeout")
	}
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker()
	c.Register("metrics", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	var body CheckResult
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["metrics"] != "down" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
