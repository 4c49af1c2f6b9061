package domain

import "time"

// EmergencyActionID is reserved for the escalation action triggered by a
// burst of distinct high/critical signals. It carries its own cooldown and
// never consumes a per-kind cooldown.
const EmergencyActionID = "emergency_remediation"

// HealingOutcome distinguishes how the coordinator resolved a signal.
// Skipped (cooldown) and Unregistered (no action for the kind) are distinct
// so operators can tell a throttled action from a missing one.
type HealingOutcome string

const (
	OutcomeSuccess      HealingOutcome = "success"
	OutcomeFailed       HealingOutcome = "failed"
	OutcomeSkipped      HealingOutcome = "skipped"
	OutcomeUnregistered HealingOutcome = "unregistered"
)

// HealingRecord is one entry in the remediation history.
type HealingRecord struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      ErrorKind      `json:"kind"`
	ActionID  string         `json:"action_id"`
	Outcome   HealingOutcome `json:"outcome"`
	Detail    string         `json:"detail,omitempty"`
}

// HealingStatus is a point-in-time summary of the coordinator.
type HealingStatus struct {
	Active        bool           `json:"active"`
	TotalActions  int            `json:"total_actions"`
	RecentActions int            `json:"recent_actions"`
	SuccessRate   float64        `json:"success_rate"`
	LastRecord    *HealingRecord `json:"last_record,omitempty"`
}
