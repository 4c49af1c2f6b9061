package domain

import "time"

// RecoveryAttempt records one try of a wrapped operation.
type RecoveryAttempt struct {
	Operation   string    `json:"operation"`
	Attempt     int       `json:"attempt"`
	Kind        ErrorKind `json:"fault_kind,omitempty"`
	Remediated  bool      `json:"remediation_invoked"`
	Err         string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
