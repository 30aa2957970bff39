package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// ErrNotFound is returned by lookups for a missing row.
var ErrNotFound = errors.New("not found")

const defaultPageSize = 20

// RecommendationRepo implements outbound.RecommendationRepository using SQLite.
type RecommendationRepo struct {
	db *sql.DB
}

// NewRecommendationRepo creates a new RecommendationRepo backed by the given store.
func NewRecommendationRepo(store *Store) *RecommendationRepo {
	return &RecommendationRepo{db: store.DB}
}

var _ outbound.RecommendationRepository = (*RecommendationRepo)(nil)

const recommendationColumns = `id, text, failed, provider, model, latency_ms, created_at`

// Create inserts a recommendation row and returns the stored recommendation.
func (r *RecommendationRepo) Create(ctx context.Context, rec model.Recommendation) (model.Recommendation, error) {
	const q = `INSERT INTO recommendations (` + recommendationColumns + `) VALUES (?,?,?,?,?,?,?)`

	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Text, rec.Failed,
		rec.Provider, rec.Model, rec.LatencyMs,
		rec.CreatedAt,
	)
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("inserting recommendation: %w", err)
	}
	return rec, nil
}

// GetByID fetches a single recommendation by primary key.
func (r *RecommendationRepo) GetByID(ctx context.Context, id string) (model.Recommendation, error) {
	const q = `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = ?`

	rec, err := scanRecommendation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Recommendation{}, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("fetching recommendation: %w", err)
	}
	return rec, nil
}

// List returns a paginated, filtered list ordered by creation time.
func (r *RecommendationRepo) List(ctx context.Context, filter outbound.RecommendationFilter, page outbound.PageRequest) (outbound.PageResult[model.Recommendation], error) {
	where, args := buildRecommendationWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recommendations"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.Recommendation]{}, fmt.Errorf("counting recommendations: %w", err)
	}

	size, offset := pageBounds(page)
	dataQ := fmt.Sprintf(`SELECT %s FROM recommendations%s ORDER BY created_at %s, id %[3]s LIMIT ? OFFSET ?`,
		recommendationColumns, where, direction(page))

	rows, err := r.db.QueryContext(ctx, dataQ, append(args, size, offset)...)
	if err != nil {
		return outbound.PageResult[model.Recommendation]{}, fmt.Errorf("listing recommendations: %w", err)
	}
	defer rows.Close()

	var items []model.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return outbound.PageResult[model.Recommendation]{}, fmt.Errorf("scanning recommendation: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.Recommendation]{}, fmt.Errorf("iterating recommendations: %w", err)
	}

	return outbound.PageResult[model.Recommendation]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(s rowScanner) (model.Recommendation, error) {
	var rec model.Recommendation
	err := s.Scan(
		&rec.ID, &rec.Text, &rec.Failed,
		&rec.Provider, &rec.Model, &rec.LatencyMs,
		&rec.CreatedAt,
	)
	if err != nil {
		return model.Recommendation{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func buildRecommendationWhere(f outbound.RecommendationFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Failed != nil {
		clauses = append(clauses, "failed = ?")
		args = append(args, *f.Failed)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}
	return joinWhere(clauses), args
}

func joinWhere(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func pageBounds(page outbound.PageRequest) (size, offset int) {
	size = page.Size
	if size <= 0 {
		size = defaultPageSize
	}
	p := page.Page
	if p < 0 {
		p = 0
	}
	return size, p * size
}

func direction(page outbound.PageRequest) string {
	if page.Desc {
		return "DESC"
	}
	return "ASC"
}
