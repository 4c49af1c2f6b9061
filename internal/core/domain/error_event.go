package domain

import "time"

// ErrorKind identifies the category of a detected failure.
type ErrorKind string

const (
	KindServiceTimeout    ErrorKind = "service_timeout"
	KindMemoryError       ErrorKind = "memory_error"
	KindDiskSpace         ErrorKind = "disk_space"
	KindAPIQuota          ErrorKind = "api_quota"
	KindMediaToolError    ErrorKind = "media_tool_error"
	KindDependencyMissing ErrorKind = "dependency_missing"
	KindPermissionError   ErrorKind = "permission_error"
	KindNetworkError      ErrorKind = "network_error"
	KindProcessCrash      ErrorKind = "process_crash"
	KindGeneralError      ErrorKind = "general_error"
)

// Severity orders error events from low to critical.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ErrorEvent is a structured record derived from one matched log line.
type ErrorEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      ErrorKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Raw       string    `json:"raw"`
	SourceID  string    `json:"source_id"`
}
