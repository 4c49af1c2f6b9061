package healing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/infra/storage/memory"
)

func testConfig() Config {
	return Config{
		ExecTimeout:        5 * time.Second,
		EmergencyThreshold: 3,
		EmergencyWindow:    2 * time.Minute,
	}
}

// countingAction records executions and returns a configurable error.
type countingAction struct {
	mu    sync.Mutex
	runs  int
	err   error
	sleep time.Duration
}

func (a *countingAction) execute(ctx context.Context) (string, error) {
	a.mu.Lock()
	a.runs++
	a.mu.Unlock()
	if a.sleep > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.sleep):
		}
	}
	if a.err != nil {
		return "", a.err
	}
	return "done", nil
}

func (a *countingAction) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

func signalFor(kind domain.ErrorKind, sev domain.Severity) domain.Signal {
	return domain.Signal{
		Type:      domain.SignalCritical,
		Kind:      kind,
		Severity:  sev,
		Detail:    "test",
		Timestamp: time.Now(),
	}
}

func TestHandleSignalExecutesRegisteredAction(t *testing.T) {
	act := &countingAction{}
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "restart", Kind: domain.KindServiceTimeout, Cooldown: time.Minute, Execute: act.execute},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))

	if act.count() != 1 {
		t.Fatalf("action ran %d times, want 1", act.count())
	}
	recent, _ := repo.Recent(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != domain.OutcomeSuccess {
		t.Fatalf("expected one success record, got %+v", recent)
	}
}

func TestCooldownSkipsSecondExecution(t *testing.T) {
	act := &countingAction{}
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "restart", Kind: domain.KindServiceTimeout, Cooldown: time.Hour, Execute: act.execute},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))
	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))

	if act.count() != 1 {
		t.Fatalf("action ran %d times, want 1", act.count())
	}
	recent, _ := repo.Recent(context.Background(), 2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Outcome != domain.OutcomeSkipped {
		t.Errorf("latest outcome = %s, want %s", recent[0].Outcome, domain.OutcomeSkipped)
	}
}

func TestUnregisteredKindEscalates(t *testing.T) {
	repo := memory.NewHealingHistoryRepo(100)
	var escalated []domain.Signal
	c := NewCoordinator(testConfig(), nil, repo, func(sig domain.Signal) {
		escalated = append(escalated, sig)
	}, nil)

	c.HandleSignal(signalFor(domain.KindPermissionError, domain.SeverityMedium))

	if len(escalated) != 1 {
		t.Fatalf("got %d escalations, want 1", len(escalated))
	}
	if escalated[0].Type != domain.SignalUnresolved {
		t.Errorf("escalation type = %s, want %s", escalated[0].Type, domain.SignalUnresolved)
	}
	recent, _ := repo.Recent(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != domain.OutcomeUnregistered {
		t.Fatalf("expected unregistered record, got %+v", recent)
	}
}

func TestFailedActionEscalates(t *testing.T) {
	act := &countingAction{err: errors.New("restart refused")}
	repo := memory.NewHealingHistoryRepo(100)
	var escalated []domain.Signal
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "restart", Kind: domain.KindServiceTimeout, Cooldown: time.Minute, Execute: act.execute},
	}, repo, func(sig domain.Signal) {
		escalated = append(escalated, sig)
	}, nil)

	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))

	if len(escalated) != 1 {
		t.Fatalf("got %d escalations, want 1", len(escalated))
	}
	recent, _ := repo.Recent(context.Background(), 1)
	if recent[0].Outcome != domain.OutcomeFailed {
		t.Errorf("outcome = %s, want %s", recent[0].Outcome, domain.OutcomeFailed)
	}
}

func TestPanickingActionRecordedAsFailure(t *testing.T) {
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "broken", Kind: domain.KindDiskSpace, Cooldown: time.Minute, Execute: func(ctx context.Context) (string, error) {
			panic("boom")
		}},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindDiskSpace, domain.SeverityMedium))

	recent, _ := repo.Recent(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != domain.OutcomeFailed {
		t.Fatalf("expected failure record from panic, got %+v", recent)
	}
}

func TestSecondActionRunsWhenFirstOnCooldown(t *testing.T) {
	first := &countingAction{}
	second := &countingAction{}
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "first", Kind: domain.KindMemoryError, Cooldown: time.Hour, Execute: first.execute},
		{ID: "second", Kind: domain.KindMemoryError, Cooldown: time.Hour, Execute: second.execute},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindMemoryError, domain.SeverityMedium))
	c.HandleSignal(signalFor(domain.KindMemoryError, domain.SeverityMedium))

	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("runs = %d/%d, want 1/1", first.count(), second.count())
	}
}

func TestEmergencyFiresOnDistinctKinds(t *testing.T) {
	emergency := &countingAction{}
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: domain.EmergencyActionID, Kind: domain.KindGeneralError, Cooldown: time.Hour, Execute: emergency.execute},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityHigh))
	c.HandleSignal(signalFor(domain.KindMemoryError, domain.SeverityHigh))
	if emergency.count() != 0 {
		t.Fatalf("emergency fired after 2 distinct kinds")
	}

	c.HandleSignal(signalFor(domain.KindDiskSpace, domain.SeverityCritical))
	if emergency.count() != 1 {
		t.Fatalf("emergency ran %d times, want 1", emergency.count())
	}

	// Still inside the emergency cooldown, a fourth kind must not re-fire.
	c.HandleSignal(signalFor(domain.KindNetworkError, domain.SeverityHigh))
	if emergency.count() != 1 {
		t.Fatalf("emergency re-fired inside cooldown")
	}
}

func TestEmergencyIgnoresLowSeverity(t *testing.T) {
	emergency := &countingAction{}
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: domain.EmergencyActionID, Kind: domain.KindGeneralError, Cooldown: time.Hour, Execute: emergency.execute},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))
	c.HandleSignal(signalFor(domain.KindMemoryError, domain.SeverityMedium))
	c.HandleSignal(signalFor(domain.KindDiskSpace, domain.SeverityMedium))

	if emergency.count() != 0 {
		t.Fatalf("emergency fired on medium severity signals")
	}
}

func TestRemediateReportsExecution(t *testing.T) {
	act := &countingAction{}
	repo := memory.NewHealingHistoryRepo(100)
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "restart", Kind: domain.KindServiceTimeout, Cooldown: time.Hour, Execute: act.execute},
	}, repo, nil, nil)

	if !c.Remediate(domain.KindServiceTimeout) {
		t.Error("first remediation should report execution")
	}
	if c.Remediate(domain.KindServiceTimeout) {
		t.Error("second remediation inside cooldown should report no execution")
	}
	if c.Remediate(domain.KindAPIQuota) {
		t.Error("unregistered kind should report no execution")
	}
}

// cooldownStoreStub persists cooldowns in a plain map.
type cooldownStoreStub struct {
	mu   sync.Mutex
	data map[string]time.Time
}

func (s *cooldownStoreStub) SetCooldown(_ context.Context, actionID string, executedAt time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[actionID] = executedAt
	return nil
}

func (s *cooldownStoreStub) GetCooldown(_ context.Context, actionID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.data[actionID]
	return ts, ok, nil
}

func TestCooldownSurvivesRestart(t *testing.T) {
	store := &cooldownStoreStub{data: map[string]time.Time{}}
	repo := memory.NewHealingHistoryRepo(100)
	act := &countingAction{}
	actions := func() []*Action {
		return []*Action{
			{ID: "restart", Kind: domain.KindServiceTimeout, Cooldown: time.Hour, Execute: act.execute},
		}
	}

	c := NewCoordinator(testConfig(), actions(), repo, nil, store)
	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))
	if act.count() != 1 {
		t.Fatalf("action ran %d times, want 1", act.count())
	}

	// A new coordinator over the same store must honor the cooldown.
	c2 := NewCoordinator(testConfig(), actions(), repo, nil, store)
	c2.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))
	if act.count() != 1 {
		t.Fatalf("cooldown not restored from store, action ran %d times", act.count())
	}
}

func TestStatusSummarizesHistory(t *testing.T) {
	repo := memory.NewHealingHistoryRepo(100)
	ok := &countingAction{}
	bad := &countingAction{err: errors.New("nope")}
	c := NewCoordinator(testConfig(), []*Action{
		{ID: "ok", Kind: domain.KindServiceTimeout, Cooldown: 0, Execute: ok.execute},
		{ID: "bad", Kind: domain.KindDiskSpace, Cooldown: 0, Execute: bad.execute},
	}, repo, nil, nil)

	c.HandleSignal(signalFor(domain.KindServiceTimeout, domain.SeverityMedium))
	c.HandleSignal(signalFor(domain.KindDiskSpace, domain.SeverityMedium))

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.RecentActions != 2 {
		t.Errorf("RecentActions = %d, want 2", status.RecentActions)
	}
	if status.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %.2f, want 0.50", status.SuccessRate)
	}
	if status.LastRecord == nil {
		t.Error("LastRecord is nil")
	}
}
