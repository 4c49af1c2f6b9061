package memory

import (
	"context"
	"sync"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
)

// HealingHistoryRepo implements storage.HealingHistoryRepository in memory.
// Used when no database URL is configured.
type HealingHistoryRepo struct {
	mu      sync.RWMutex
	records []*domain.HealingRecord
	limit   int
}

// NewHealingHistoryRepo creates an in-memory healing history repository
// bounded to limit records; the oldest are dropped first.
func NewHealingHistoryRepo(limit int) *HealingHistoryRepo {
	if limit <= 0 {
		limit = 1000
	}
	return &HealingHistoryRepo{limit: limit}
}

// Add appends one healing record.
func (r *HealingHistoryRepo) Add(_ context.Context, rec *domain.HealingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > r.limit {
		r.records = r.records[len(r.records)-r.limit:]
	}
	return nil
}

// Recent returns up to n most recent records, newest first.
func (r *HealingHistoryRepo) Recent(_ context.Context, n int) ([]*domain.HealingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > len(r.records) {
		n = len(r.records)
	}
	out := make([]*domain.HealingRecord, 0, n)
	for i := len(r.records) - 1; i >= len(r.records)-n; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

// CountSince counts records created at or after t.
func (r *HealingHistoryRepo) CountSince(_ context.Context, t time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.records {
		if !rec.Timestamp.Before(t) {
			count++
		}
	}
	return count, nil
}

// PruneBefore removes records older than t.
func (r *HealingHistoryRepo) PruneBefore(_ context.Context, t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	removed := 0
	for _, rec := range r.records {
		if rec.Timestamp.Before(t) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}
