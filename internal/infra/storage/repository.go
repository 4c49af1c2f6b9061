package storage

import (
	"context"
	"errors"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
)

var (
	// ErrRecordNotFound is returned when a healing record doesn't exist
	ErrRecordNotFound = errors.New("healing record not found")
)

// HealingHistoryRepository persists remediation outcomes.
type HealingHistoryRepository interface {
	// Add appends one healing record
	Add(ctx context.Context, rec *domain.HealingRecord) error

	// Recent returns up to n most recent records, newest first
	Recent(ctx context.Context, n int) ([]*domain.HealingRecord, error)

	// CountSince counts records created at or after t
	CountSince(ctx context.Context, t time.Time) (int, error)

	// PruneBefore removes records older than t, returning how many were removed
	PruneBefore(ctx context.Context, t time.Time) (int, error)
}
