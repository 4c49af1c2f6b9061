package domain

import "time"

// AlertMessage is one outbound notification. Transient: queued, delivered or
// persisted to the fallback log, then discarded.
type AlertMessage struct {
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	// Hints carries suggested remediation steps for the operator.
	Hints []string `json:"hints,omitempty"`
}
