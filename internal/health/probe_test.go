package health

import (
	"context"
	"testing"
	"time"

	"github.com/haidang-dev/warden/internal/core/config"
	"github.com/haidang-dev/warden/internal/core/domain"
)

func staticCheck(name string, status Status) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) CheckResult {
			return CheckResult{Name: name, Status: status, Detail: "static"}
		},
	}
}

func probeConfig() config.HealthConfig {
	return config.HealthConfig{
		Interval:     time.Second,
		ProbeTimeout: time.Second,
	}
}

func TestAggregateWorstStatusWins(t *testing.T) {
	cases := []struct {
		results []CheckResult
		want    Status
	}{
		{[]CheckResult{{Status: StatusHealthy}, {Status: StatusHealthy}}, StatusHealthy},
		{[]CheckResult{{Status: StatusHealthy}, {Status: StatusWarning}}, StatusWarning},
		{[]CheckResult{{Status: StatusWarning}, {Status: StatusCritical}}, StatusCritical},
		{[]CheckResult{{Status: StatusHealthy}, {Status: StatusError}}, StatusWarning},
		{[]CheckResult{{Status: StatusError}, {Status: StatusCritical}}, StatusCritical},
		{nil, StatusHealthy},
	}
	for _, tc := range cases {
		if got := aggregate(tc.results); got != tc.want {
			t.Errorf("aggregate(%v) = %s, want %s", tc.results, got, tc.want)
		}
	}
}

func TestThresholdBoundaries(t *testing.T) {
	r := thresholdResult("memory", 95.0, 85, 95, "")
	if r.Status != StatusCritical {
		t.Errorf("value at the critical threshold = %s, want critical", r.Status)
	}
	r = thresholdResult("memory", 94.9, 85, 95, "")
	if r.Status != StatusWarning {
		t.Errorf("value below the critical threshold = %s, want warning", r.Status)
	}
	r = thresholdResult("memory", 40.0, 85, 95, "")
	if r.Status != StatusHealthy {
		t.Errorf("low value = %s, want healthy", r.Status)
	}
}

func TestPanickingCheckIsIsolated(t *testing.T) {
	checks := []Check{
		{Name: "broken", Run: func(ctx context.Context) CheckResult { panic("boom") }},
		staticCheck("fine", StatusHealthy),
	}
	p := NewProbe(probeConfig(), checks, nil)
	p.pass(context.Background())

	snap := p.Snapshot()
	if len(snap.Checks) != 2 {
		t.Fatalf("got %d results, want 2", len(snap.Checks))
	}
	if snap.Checks[0].Status != StatusError {
		t.Errorf("broken check status = %s, want error", snap.Checks[0].Status)
	}
	if snap.Checks[1].Status != StatusHealthy {
		t.Errorf("healthy check was affected: %s", snap.Checks[1].Status)
	}
}

func TestFailingCheckDoesNotForceCritical(t *testing.T) {
	var signals []domain.Signal
	checks := []Check{
		{Name: "broken", Run: func(ctx context.Context) CheckResult { panic("boom") }},
		staticCheck("memory", StatusHealthy),
		staticCheck("disk", StatusHealthy),
	}
	p := NewProbe(probeConfig(), checks, func(sig domain.Signal) {
		signals = append(signals, sig)
	})
	p.pass(context.Background())

	if got := p.Snapshot().Overall; got != StatusWarning {
		t.Errorf("overall = %s, want warning", got)
	}
	if len(signals) != 0 {
		t.Fatalf("failing check raised %d transition signals, want 0", len(signals))
	}
}

func TestTransitionToCriticalSignalsOnce(t *testing.T) {
	var signals []domain.Signal
	checks := []Check{staticCheck("memory", StatusCritical)}
	p := NewProbe(probeConfig(), checks, func(sig domain.Signal) {
		signals = append(signals, sig)
	})

	p.pass(context.Background())
	p.pass(context.Background())

	if len(signals) != 1 {
		t.Fatalf("got %d transition signals, want 1", len(signals))
	}
	if signals[0].Type != domain.SignalHealthTransition {
		t.Errorf("signal type = %s, want %s", signals[0].Type, domain.SignalHealthTransition)
	}
	if signals[0].Kind != domain.KindMemoryError {
		t.Errorf("signal kind = %s, want %s", signals[0].Kind, domain.KindMemoryError)
	}
}

func TestRecoveryReArmsTransitionSignal(t *testing.T) {
	var signals []domain.Signal
	status := StatusCritical
	checks := []Check{{
		Name: "disk",
		Run: func(ctx context.Context) CheckResult {
			return CheckResult{Name: "disk", Status: status}
		},
	}}
	p := NewProbe(probeConfig(), checks, func(sig domain.Signal) {
		signals = append(signals, sig)
	})

	p.pass(context.Background()) // critical, signal
	status = StatusHealthy
	p.pass(context.Background()) // recovered, no signal
	status = StatusCritical
	p.pass(context.Background()) // critical again, signal

	if len(signals) != 2 {
		t.Fatalf("got %d transition signals, want 2", len(signals))
	}
}

func TestEachCheckTransitionSignals(t *testing.T) {
	var signals []domain.Signal
	memStatus := StatusCritical
	diskStatus := StatusHealthy
	checks := []Check{
		{Name: "memory", Run: func(ctx context.Context) CheckResult {
			return CheckResult{Name: "memory", Status: memStatus}
		}},
		{Name: "disk", Run: func(ctx context.Context) CheckResult {
			return CheckResult{Name: "disk", Status: diskStatus}
		}},
	}
	p := NewProbe(probeConfig(), checks, func(sig domain.Signal) {
		signals = append(signals, sig)
	})

	p.pass(context.Background())
	if len(signals) != 1 {
		t.Fatalf("got %d signals after first pass, want 1", len(signals))
	}

	// Memory stays critical; disk degrading must still raise its own signal.
	diskStatus = StatusCritical
	p.pass(context.Background())
	if len(signals) != 2 {
		t.Fatalf("got %d signals after disk degraded, want 2", len(signals))
	}
	if signals[1].Kind != domain.KindDiskSpace {
		t.Errorf("second signal kind = %s, want %s", signals[1].Kind, domain.KindDiskSpace)
	}
}

func TestWarningDoesNotSignal(t *testing.T) {
	var signals []domain.Signal
	p := NewProbe(probeConfig(), []Check{staticCheck("cpu", StatusWarning)}, func(sig domain.Signal) {
		signals = append(signals, sig)
	})
	p.pass(context.Background())

	if len(signals) != 0 {
		t.Fatalf("warning raised %d signals, want 0", len(signals))
	}
	if p.Snapshot().Overall != StatusWarning {
		t.Errorf("overall = %s, want warning", p.Snapshot().Overall)
	}
}
