package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// CycleRepo implements outbound.CycleRepository using SQLite.
type CycleRepo struct {
	db *sql.DB
}

// NewCycleRepo creates a new CycleRepo backed by the given store.
func NewCycleRepo(store *Store) *CycleRepo {
	return &CycleRepo{db: store.DB}
}

var _ outbound.CycleRepository = (*CycleRepo)(nil)

const cycleColumns = `id, started_at, duration_ms, outcome, recommendation_id, detail`

// Create records one finished polling cycle.
func (r *CycleRepo) Create(ctx context.Context, report model.CycleReport) error {
	const q = `INSERT INTO polling_cycles (` + cycleColumns + `) VALUES (?,?,?,?,?,?)`

	_, err := r.db.ExecContext(ctx, q,
		report.ID, report.StartedAt.UTC(), report.Duration.Milliseconds(),
		string(report.Outcome), report.RecommendationID, report.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}
	return nil
}

// List returns a paginated list of cycles ordered by start time.
func (r *CycleRepo) List(ctx context.Context, filter outbound.CycleFilter, page outbound.PageRequest) (outbound.PageResult[model.CycleReport], error) {
	var clauses []string
	var args []any
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	where := joinWhere(clauses)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM polling_cycles"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.CycleReport]{}, fmt.Errorf("counting cycles: %w", err)
	}

	size, offset := pageBounds(page)
	dataQ := fmt.Sprintf(`SELECT %s FROM polling_cycles%s ORDER BY started_at %s, id %[3]s LIMIT ? OFFSET ?`,
		cycleColumns, where, direction(page))

	rows, err := r.db.QueryContext(ctx, dataQ, append(args, size, offset)...)
	if err != nil {
		return outbound.PageResult[model.CycleReport]{}, fmt.Errorf("listing cycles: %w", err)
	}
	defer rows.Close()

	var items []model.CycleReport
	for rows.Next() {
		var (
			c          model.CycleReport
			durationMs int64
			outcome    string
		)
		if err := rows.Scan(&c.ID, &c.StartedAt, &durationMs, &outcome, &c.RecommendationID, &c.Detail); err != nil {
			return outbound.PageResult[model.CycleReport]{}, fmt.Errorf("scanning cycle: %w", err)
		}
		c.StartedAt = c.StartedAt.UTC()
		c.Duration = time.Duration(durationMs) * time.Millisecond
		c.Outcome = model.CycleOutcome(outcome)
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.CycleReport]{}, fmt.Errorf("iterating cycles: %w", err)
	}

	return outbound.PageResult[model.CycleReport]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}
