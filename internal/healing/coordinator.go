// Package healing maps error kinds to remediation actions under cooldowns.
package healing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/infra/storage"
	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// Config tunes the coordinator.
type Config struct {
	// ExecTimeout bounds each action execution.
	ExecTimeout time.Duration
	// EmergencyThreshold is the number of distinct high/critical kinds
	// within EmergencyWindow that triggers the emergency action.
	EmergencyThreshold int
	EmergencyWindow    time.Duration
	// HistoryRetention bounds how long healing records are kept.
	HistoryRetention time.Duration
}

// DefaultConfig returns coordinator defaults.
func DefaultConfig() Config {
	return Config{
		ExecTimeout:        30 * time.Second,
		EmergencyThreshold: 3,
		EmergencyWindow:    2 * time.Minute,
		HistoryRetention:   7 * 24 * time.Hour,
	}
}

// Coordinator holds the kind → action registry and enforces per-action
// cooldowns. The cooldown table is the only mutable state shared across
// goroutines and is guarded by mu; everything else is written under the same
// critical section or owned by the caller.
type Coordinator struct {
	cfg       Config
	registry  map[domain.ErrorKind][]*Action
	emergency *Action
	history   storage.HealingHistoryRepository
	escalate  Escalator
	cooldowns CooldownStore // optional, may be nil

	mu      sync.Mutex
	lastRun map[string]time.Time
	// burst tracks the most recent high/critical signal per kind for
	// emergency detection.
	burst map[domain.ErrorKind]time.Time
}

// NewCoordinator creates a coordinator with a declarative action list.
// Actions for the same kind keep their registration order; the first
// off-cooldown action handles a signal. An action with ID
// domain.EmergencyActionID is installed as the emergency action instead of
// joining the registry.
func NewCoordinator(
	cfg Config,
	actions []*Action,
	history storage.HealingHistoryRepository,
	escalate Escalator,
	cooldowns CooldownStore,
) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		registry:  make(map[domain.ErrorKind][]*Action),
		history:   history,
		escalate:  escalate,
		cooldowns: cooldowns,
		lastRun:   make(map[string]time.Time),
		burst:     make(map[domain.ErrorKind]time.Time),
	}
	for _, a := range actions {
		if a.ID == domain.EmergencyActionID {
			c.emergency = a
			continue
		}
		c.registry[a.Kind] = append(c.registry[a.Kind], a)
	}
	c.loadCooldowns()
	return c
}

// loadCooldowns restores persisted cooldown timestamps so a restart cannot
// bypass a cooldown window. Best effort: store errors only log.
func (c *Coordinator) loadCooldowns() {
	if c.cooldowns == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	restore := func(id string) {
		ts, ok, err := c.cooldowns.GetCooldown(ctx, id)
		if err != nil {
			slog.Warn("Failed to load cooldown state", "action", id, "error", err)
			return
		}
		if ok {
			c.lastRun[id] = ts
		}
	}
	for _, actions := range c.registry {
		for _, a := range actions {
			restore(a.ID)
		}
	}
	if c.emergency != nil {
		restore(c.emergency.ID)
	}
}

// HandleSignal resolves one signal: it executes at most one registered action
// for the signal's kind, records the outcome, and escalates anything left
// unresolved. Safe for concurrent use.
func (c *Coordinator) HandleSignal(sig domain.Signal) {
	if sig.Severity >= domain.SeverityHigh {
		c.checkEmergency(sig)
	}

	outcome, detail, actionID := c.remediate(sig.Kind)

	switch outcome {
	case domain.OutcomeSuccess:
		slog.Info("Healing action succeeded", "action", actionID, "kind", sig.Kind)
	case domain.OutcomeSkipped:
		slog.Info("Healing action skipped, inside cooldown", "action", actionID, "kind", sig.Kind)
	case domain.OutcomeFailed:
		slog.Error("Healing action failed", "action", actionID, "kind", sig.Kind, "detail", detail)
		c.escalateUnresolved(sig, detail)
	case domain.OutcomeUnregistered:
		slog.Warn("No healing action registered", "kind", sig.Kind)
		c.escalateUnresolved(sig, "no action registered for kind")
	}
}

// Remediate runs the first off-cooldown action for a kind, synchronously.
// Used by the recovery wrapper between retries. It reports whether an action
// actually executed.
func (c *Coordinator) Remediate(kind domain.ErrorKind) bool {
	outcome, _, _ := c.remediate(kind)
	return outcome == domain.OutcomeSuccess || outcome == domain.OutcomeFailed
}

func (c *Coordinator) remediate(kind domain.ErrorKind) (domain.HealingOutcome, string, string) {
	actions := c.registry[kind]
	if len(actions) == 0 {
		c.record(kind, "", domain.OutcomeUnregistered, "")
		return domain.OutcomeUnregistered, "", ""
	}

	now := time.Now()
	var chosen *Action
	c.mu.Lock()
	for _, a := range actions {
		if last, ok := c.lastRun[a.ID]; ok && now.Sub(last) < a.Cooldown {
			continue
		}
		chosen = a
		// Reserve the slot before releasing the lock so a concurrent
		// signal cannot execute the same action inside its cooldown.
		c.lastRun[a.ID] = now
		break
	}
	c.mu.Unlock()

	if chosen == nil {
		c.record(kind, actions[0].ID, domain.OutcomeSkipped, "inside cooldown window")
		return domain.OutcomeSkipped, "", actions[0].ID
	}

	c.persistCooldown(chosen, now)

	detail, err := c.execute(chosen)
	if err != nil {
		c.record(kind, chosen.ID, domain.OutcomeFailed, err.Error())
		return domain.OutcomeFailed, err.Error(), chosen.ID
	}
	c.record(kind, chosen.ID, domain.OutcomeSuccess, detail)
	return domain.OutcomeSuccess, detail, chosen.ID
}

// execute runs one action with a bounded timeout, converting panics into
// failures so a broken action cannot take the coordinator down.
func (c *Coordinator) execute(a *Action) (detail string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ExecTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = &actionPanicError{actionID: a.ID, value: r}
		}
	}()
	return a.Execute(ctx)
}

// checkEmergency tracks distinct high/critical kinds in a short window and
// fires the emergency action when the threshold is reached. The emergency
// action has its own cooldown and does not consume per-kind cooldowns.
func (c *Coordinator) checkEmergency(sig domain.Signal) {
	if c.emergency == nil {
		return
	}
	now := time.Now()
	cutoff := now.Add(-c.cfg.EmergencyWindow)

	c.mu.Lock()
	c.burst[sig.Kind] = now
	distinct := 0
	for kind, ts := range c.burst {
		if ts.Before(cutoff) {
			delete(c.burst, kind)
			continue
		}
		distinct++
	}
	fire := distinct >= c.cfg.EmergencyThreshold
	if fire {
		if last, ok := c.lastRun[c.emergency.ID]; ok && now.Sub(last) < c.emergency.Cooldown {
			fire = false
		} else {
			c.lastRun[c.emergency.ID] = now
		}
	}
	c.mu.Unlock()

	if !fire {
		return
	}

	slog.Error("Emergency remediation triggered", "distinct_kinds", distinct, "window", c.cfg.EmergencyWindow)
	c.persistCooldown(c.emergency, now)
	detail, err := c.execute(c.emergency)
	if err != nil {
		c.record(sig.Kind, c.emergency.ID, domain.OutcomeFailed, err.Error())
		c.escalateUnresolved(sig, "emergency remediation failed: "+err.Error())
		return
	}
	c.record(sig.Kind, c.emergency.ID, domain.OutcomeSuccess, detail)
}

func (c *Coordinator) persistCooldown(a *Action, at time.Time) {
	if c.cooldowns == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.cooldowns.SetCooldown(ctx, a.ID, at, a.Cooldown); err != nil {
		slog.Warn("Failed to persist cooldown state", "action", a.ID, "error", err)
	}
}

func (c *Coordinator) record(kind domain.ErrorKind, actionID string, outcome domain.HealingOutcome, detail string) {
	metrics.HealingExecutions.WithLabelValues(actionID, string(outcome)).Inc()

	rec := &domain.HealingRecord{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      kind,
		ActionID:  actionID,
		Outcome:   outcome,
		Detail:    detail,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.history.Add(ctx, rec); err != nil {
		slog.Error("Failed to record healing outcome", "action", actionID, "error", err)
	}
}

func (c *Coordinator) escalateUnresolved(sig domain.Signal, detail string) {
	if c.escalate == nil {
		return
	}
	c.escalate(domain.Signal{
		Type:      domain.SignalUnresolved,
		Kind:      sig.Kind,
		Severity:  domain.SeverityHigh,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}

// Run prunes expired history on an hourly cadence until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.cfg.HistoryRetention)
			removed, err := c.history.PruneBefore(ctx, cutoff)
			if err != nil {
				slog.Warn("Failed to prune healing history", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("Pruned healing history", "removed", removed)
			}
		}
	}
}

// Status summarizes recent coordinator activity for the HTTP surface.
func (c *Coordinator) Status(ctx context.Context) (*domain.HealingStatus, error) {
	hourAgo := time.Now().Add(-time.Hour)
	recentCount, err := c.history.CountSince(ctx, hourAgo)
	if err != nil {
		return nil, err
	}
	recent, err := c.history.Recent(ctx, 100)
	if err != nil {
		return nil, err
	}

	status := &domain.HealingStatus{
		Active:        true,
		TotalActions:  len(c.registry),
		RecentActions: recentCount,
	}
	if len(recent) > 0 {
		status.LastRecord = recent[0]
	}

	executed, succeeded := 0, 0
	for _, rec := range recent {
		if rec.Timestamp.Before(hourAgo) {
			continue
		}
		switch rec.Outcome {
		case domain.OutcomeSuccess:
			executed++
			succeeded++
		case domain.OutcomeFailed:
			executed++
		}
	}
	if executed > 0 {
		status.SuccessRate = float64(succeeded) / float64(executed)
	}
	return status, nil
}

type actionPanicError struct {
	actionID string
	value    any
}

func (e *actionPanicError) Error() string {
	return fmt.Sprintf("action %s panicked: %v", e.actionID, e.value)
}
