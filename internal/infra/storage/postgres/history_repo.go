package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
)

// HealingHistoryRepo implements storage.HealingHistoryRepository using PostgreSQL.
type HealingHistoryRepo struct {
	db *DB
}

// NewHealingHistoryRepo creates a new PostgreSQL healing history repository.
func NewHealingHistoryRepo(db *DB) *HealingHistoryRepo {
	return &HealingHistoryRepo{db: db}
}

type healingRow struct {
	ID        string    `db:"id"`
	Timestamp time.Time `db:"created_at"`
	Kind      string    `db:"kind"`
	ActionID  string    `db:"action_id"`
	Outcome   string    `db:"outcome"`
	Detail    string    `db:"detail"`
}

// Add appends one healing record.
func (r *HealingHistoryRepo) Add(ctx context.Context, rec *domain.HealingRecord) error {
	query := `
		INSERT INTO healing_history (id, created_at, kind, action_id, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.Timestamp,
		string(rec.Kind),
		rec.ActionID,
		string(rec.Outcome),
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to add healing record: %w", err)
	}
	return nil
}

// Recent returns up to n most recent records, newest first.
func (r *HealingHistoryRepo) Recent(ctx context.Context, n int) ([]*domain.HealingRecord, error) {
	query := `
		SELECT id, created_at, kind, action_id, outcome, detail
		FROM healing_history
		ORDER BY created_at DESC
		LIMIT $1
	`
	var rows []healingRow
	if err := r.db.SelectContext(ctx, &rows, query, n); err != nil {
		return nil, fmt.Errorf("failed to query healing history: %w", err)
	}

	records := make([]*domain.HealingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &domain.HealingRecord{
			ID:        row.ID,
			Timestamp: row.Timestamp,
			Kind:      domain.ErrorKind(row.Kind),
			ActionID:  row.ActionID,
			Outcome:   domain.HealingOutcome(row.Outcome),
			Detail:    row.Detail,
		})
	}
	return records, nil
}

// CountSince counts records created at or after t.
func (r *HealingHistoryRepo) CountSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM healing_history WHERE created_at >= $1`
	if err := r.db.GetContext(ctx, &count, query, t); err != nil {
		return 0, fmt.Errorf("failed to count healing records: %w", err)
	}
	return count, nil
}

// PruneBefore removes records older than t.
func (r *HealingHistoryRepo) PruneBefore(ctx context.Context, t time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM healing_history WHERE created_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to prune healing records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
