package health

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/haidang-dev/warden/internal/core/config"
	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// TransitionHandler receives a signal when a check degrades from a
// non-critical status to critical.
type TransitionHandler func(domain.Signal)

// Probe runs the check set on an interval and publishes the latest snapshot.
type Probe struct {
	cfg        config.HealthConfig
	checks     []Check
	onDegraded TransitionHandler

	snapshot  atomic.Pointer[Snapshot]
	lastCheck map[string]Status
}

// NewProbe creates a probe over the given checks.
func NewProbe(cfg config.HealthConfig, checks []Check, onDegraded TransitionHandler) *Probe {
	p := &Probe{
		cfg:        cfg,
		checks:     checks,
		onDegraded: onDegraded,
		lastCheck:  make(map[string]Status),
	}
	p.snapshot.Store(&Snapshot{Overall: StatusHealthy, CheckedAt: time.Now()})
	return p
}

// Run probes on the configured interval until the context is cancelled. The
// first pass runs immediately.
func (p *Probe) Run(ctx context.Context) {
	p.pass(ctx)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

// Snapshot returns the latest probe result. Safe for concurrent use.
func (p *Probe) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

func (p *Probe) pass(ctx context.Context) {
	results := make([]CheckResult, 0, len(p.checks))
	for _, check := range p.checks {
		results = append(results, p.runOne(ctx, check))
	}

	snap := &Snapshot{
		Overall:   aggregate(results),
		Checks:    results,
		CheckedAt: time.Now(),
	}
	p.snapshot.Store(snap)

	// Transitions are tracked per check: while one check stays critical,
	// another check going critical still raises its own signal.
	for _, r := range results {
		metrics.HealthCheckStatus.WithLabelValues(r.Name).Set(statusGaugeValue(r.Status))

		if r.Status == StatusCritical && p.lastCheck[r.Name] != StatusCritical {
			slog.Error("Health check degraded to critical", "check", r.Name, "detail", r.Detail)
			if p.onDegraded != nil {
				p.onDegraded(domain.Signal{
					Type:      domain.SignalHealthTransition,
					Kind:      checkKind(r.Name),
					Severity:  domain.SeverityCritical,
					Detail:    r.Name + ": " + r.Detail,
					Timestamp: snap.CheckedAt,
				})
			}
		}
		p.lastCheck[r.Name] = r.Status
	}
}

// runOne isolates a faulting check so one panic cannot kill the probe loop.
func (p *Probe) runOne(ctx context.Context, check Check) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Health check panicked", "check", check.Name, "panic", r)
			result = CheckResult{Name: check.Name, Status: StatusError, Detail: "check panicked"}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	result = check.Run(ctx)
	result.Elapsed = time.Since(start).Round(time.Millisecond).String()
	return result
}

// checkKind maps a check name to the error kind its remediation handles.
func checkKind(name string) domain.ErrorKind {
	switch name {
	case "memory":
		return domain.KindMemoryError
	case "disk":
		return domain.KindDiskSpace
	case "inference_service":
		return domain.KindServiceTimeout
	case "network":
		return domain.KindNetworkError
	case "media_tool":
		return domain.KindMediaToolError
	default:
		return domain.KindGeneralError
	}
}

func statusGaugeValue(s Status) float64 {
	switch s {
	case StatusHealthy:
		return 1
	case StatusWarning:
		return 0.5
	default:
		return 0
	}
}
