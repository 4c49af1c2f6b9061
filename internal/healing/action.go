package healing

import (
	"context"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
)

// Action is one registered remediation procedure bound to an error kind.
// Actions are registered declaratively at construction and live for the
// process lifetime; only their cooldown timestamps change.
type Action struct {
	ID       string
	Kind     domain.ErrorKind
	Cooldown time.Duration
	// Execute performs the remediation and returns a human-readable detail.
	Execute func(ctx context.Context) (string, error)
}

// CooldownStore persists cooldown timestamps across restarts. Implementations
// are best-effort: a store error falls back to in-memory state only.
type CooldownStore interface {
	SetCooldown(ctx context.Context, actionID string, executedAt time.Time, window time.Duration) error
	GetCooldown(ctx context.Context, actionID string) (time.Time, bool, error)
}

// Escalator receives signals the coordinator could not resolve.
type Escalator func(domain.Signal)
