package domain

import "time"

// SignalType classifies a processor or probe finding that may need action.
type SignalType string

const (
	SignalCritical         SignalType = "critical"
	SignalHighErrorRate    SignalType = "high_error_rate"
	SignalRepeatedError    SignalType = "repeated_error"
	SignalHealthTransition SignalType = "health_transition"
	SignalUnresolved       SignalType = "unresolved"
)

// Signal is the unit of fan-out between the processor, the healing
// coordinator, and the alert dispatcher.
type Signal struct {
	Type      SignalType `json:"type"`
	Kind      ErrorKind  `json:"kind"`
	Severity  Severity   `json:"severity"`
	Detail    string     `json:"detail"`
	Count     int        `json:"count,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
