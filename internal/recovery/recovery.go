// Package recovery retries failing operations with remediation between
// attempts.
package recovery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/haidang-dev/warden/internal/core/config"
	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// Remediator runs a healing action for an error kind. Reports whether an
// action actually executed.
type Remediator interface {
	Remediate(kind domain.ErrorKind) bool
}

// Wrapper retries an operation with a constant delay, invoking the
// remediator between attempts based on what the failure looks like.
type Wrapper struct {
	cfg        config.RecoveryConfig
	remediator Remediator
}

// NewWrapper creates a retry wrapper bound to a remediator. The remediator
// may be nil, in which case failures only retry.
func NewWrapper(cfg config.RecoveryConfig, remediator Remediator) *Wrapper {
	return &Wrapper{cfg: cfg, remediator: remediator}
}

// Do runs op, retrying up to MaxRetries additional attempts. Each failure is
// classified by its message and the matching healing action runs before the
// next attempt. The final error is returned unchanged when all attempts
// fail.
func (w *Wrapper) Do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(w.cfg.MaxRetries), retry.NewConstant(w.cfg.Delay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		opErr := op(ctx)
		if opErr == nil {
			if attempt > 1 {
				metrics.RecoveryAttempts.WithLabelValues(operation, "recovered").Inc()
				slog.Info("Operation recovered", "operation", operation, "attempt", attempt)
			}
			return nil
		}

		kind := ClassifyFault(opErr)
		remediated := false
		if w.remediator != nil {
			remediated = w.remediator.Remediate(kind)
		}
		w.report(&domain.RecoveryAttempt{
			Operation:   operation,
			Attempt:     attempt,
			Kind:        kind,
			Remediated:  remediated,
			Err:         opErr.Error(),
			CompletedAt: time.Now(),
		})
		return retry.RetryableError(opErr)
	})
	if err != nil {
		metrics.RecoveryAttempts.WithLabelValues(operation, "exhausted").Inc()
	}
	return err
}

func (w *Wrapper) report(rec *domain.RecoveryAttempt) {
	metrics.RecoveryAttempts.WithLabelValues(rec.Operation, "retried").Inc()
	slog.Warn("Operation failed, will retry",
		"operation", rec.Operation,
		"attempt", rec.Attempt,
		"kind", rec.Kind,
		"remediated", rec.Remediated,
		"error", rec.Err,
	)
}

// ClassifyFault maps an error message to a remediable kind.
func ClassifyFault(err error) domain.ErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return domain.KindServiceTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "unreachable"):
		return domain.KindNetworkError
	case strings.Contains(msg, "memory") || strings.Contains(msg, "oom"):
		return domain.KindMemoryError
	case strings.Contains(msg, "disk") || strings.Contains(msg, "no space"):
		return domain.KindDiskSpace
	default:
		return domain.KindGeneralError
	}
}
