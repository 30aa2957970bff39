package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonny/serviceops-ai/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(sqlite.Config{
		Path:              ":memory:",
		MaxOpenConns:      1,
		PragmaJournalMode: "WAL",
		PragmaBusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeRecommendation(text string, failed bool, at time.Time) model.Recommendation {
	rec := model.NewRecommendation(text, failed)
	rec.CreatedAt = at
	return rec.WithProvenance("openai", "gpt-4o", 420)
}

func TestNewStore_RejectsJournalMode(t *testing.T) {
	_, err := sqlite.NewStore(sqlite.Config{Path: ":memory:", PragmaJournalMode: "fast"})
	if err == nil {
		t.Error("expected error for invalid journal mode")
	}
}

func TestRecommendationRepo_CreateAndGetByID(t *testing.T) {
	repo := sqlite.NewRecommendationRepo(newTestStore(t))
	ctx := context.Background()

	rec := makeRecommendation("1. Scale checkout.", false, time.Date(2025, 2, 12, 12, 0, 0, 0, time.UTC))
	if _, err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Text != rec.Text || got.Failed || got.Provider != "openai" || got.Model != "gpt-4o" || got.LatencyMs != 420 {
		t.Errorf("unexpected recommendation: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestRecommendationRepo_GetByIDNotFound(t *testing.T) {
	repo := sqlite.NewRecommendationRepo(newTestStore(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecommendationRepo_DuplicateID(t *testing.T) {
	repo := sqlite.NewRecommendationRepo(newTestStore(t))
	ctx := context.Background()

	rec := makeRecommendation("x", false, time.Now())
	if _, err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, rec); err == nil {
		t.Error("expected primary key violation")
	}
}

func TestRecommendationRepo_List(t *testing.T) {
	repo := sqlite.NewRecommendationRepo(newTestStore(t))
	ctx := context.Background()
	base := time.Date(2025, 2, 12, 12, 0, 0, 0, time.UTC)

	for i, failed := range []bool{false, true, false, false} {
		rec := makeRecommendation("rec", failed, base.Add(time.Duration(i)*time.Minute))
		rec.Text = rec.Text + string(rune('A'+i))
		if _, err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		res, err := repo.List(ctx, outbound.RecommendationFilter{}, outbound.PageRequest{Size: 2, Desc: true})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if res.TotalCount != 4 || len(res.Items) != 2 {
			t.Fatalf("total=%d items=%d", res.TotalCount, len(res.Items))
		}
		if res.Items[0].Text != "recD" || res.Items[1].Text != "recC" {
			t.Errorf("unexpected order: %s, %s", res.Items[0].Text, res.Items[1].Text)
		}
	})

	t.Run("second page", func(t *testing.T) {
		res, err := repo.List(ctx, outbound.RecommendationFilter{}, outbound.PageRequest{Page: 1, Size: 3})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(res.Items) != 1 || res.Items[0].Text != "recD" {
			t.Errorf("unexpected page: %+v", res.Items)
		}
	})

	t.Run("failed only", func(t *testing.T) {
		failed := true
		res, err := repo.List(ctx, outbound.RecommendationFilter{Failed: &failed}, outbound.PageRequest{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if res.TotalCount != 1 || !res.Items[0].Failed || res.Items[0].Text != "recB" {
			t.Errorf("unexpected failed filter result: %+v", res)
		}
	})

	t.Run("time window", func(t *testing.T) {
		since := base.Add(time.Minute)
		until := base.Add(2 * time.Minute)
		res, err := repo.List(ctx, outbound.RecommendationFilter{Since: &since, Until: &until}, outbound.PageRequest{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if res.TotalCount != 2 {
			t.Errorf("TotalCount = %d, want 2", res.TotalCount)
		}
	})
}

func TestCycleRepo_CreateAndList(t *testing.T) {
	repo := sqlite.NewCycleRepo(newTestStore(t))
	ctx := context.Background()
	base := time.Date(2025, 2, 12, 12, 0, 0, 0, time.UTC)

	reports := []model.CycleReport{
		{ID: "c1", StartedAt: base, Duration: 1500 * time.Millisecond, Outcome: model.CycleOutcomeDelivered, RecommendationID: "r1"},
		{ID: "c2", StartedAt: base.Add(5 * time.Minute), Duration: 20 * time.Millisecond, Outcome: model.CycleOutcomeSkipped, Detail: "no metrics data available"},
		{ID: "c3", StartedAt: base.Add(10 * time.Minute), Duration: time.Second, Outcome: model.CycleOutcomeFailed, Detail: "fetch metrics: timeout"},
	}
	for _, r := range reports {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", r.ID, err)
		}
	}

	res, err := repo.List(ctx, outbound.CycleFilter{}, outbound.PageRequest{Desc: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalCount != 3 || res.Items[0].ID != "c3" {
		t.Fatalf("unexpected list: %+v", res)
	}
	if res.Items[2].Duration != 1500*time.Millisecond || res.Items[2].RecommendationID != "r1" {
		t.Errorf("unexpected first cycle: %+v", res.Items[2])
	}

	res, err = repo.List(ctx, outbound.CycleFilter{Outcome: string(model.CycleOutcomeSkipped)}, outbound.PageRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalCount != 1 || res.Items[0].Detail != "no metrics data available" {
		t.Errorf("unexpected outcome filter result: %+v", res)
	}

	since := base.Add(time.Minute)
	res, err = repo.List(ctx, outbound.CycleFilter{Since: &since}, outbound.PageRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", res.TotalCount)
	}
}
