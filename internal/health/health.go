// Package health runs periodic system checks and serves the HTTP surface.
package health

import "time"

// Status classifies one check result.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	// StatusError marks a check that could not run at all.
	StatusError Status = "error"
)

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name    string  `json:"name"`
	Status  Status  `json:"status"`
	Detail  string  `json:"detail"`
	Value   float64 `json:"value,omitempty"`
	Elapsed string  `json:"elapsed"`
}

// Snapshot is a full probe run.
type Snapshot struct {
	Overall   Status        `json:"overall"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// aggregate reduces individual results to an overall status. Critical wins
// over warning; a check that could not run counts as a warning.
func aggregate(results []CheckResult) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusCritical:
			return StatusCritical
		case StatusWarning, StatusError:
			overall = StatusWarning
		}
	}
	return overall
}
