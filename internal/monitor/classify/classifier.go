// Package classify turns raw log lines into typed error events.
package classify

import (
	"regexp"
	"strings"

	"github.com/haidang-dev/warden/internal/core/domain"
)

// Rule binds one pattern to an error kind and a default severity. Rules are
// evaluated in order; the first match wins, so specific patterns must come
// before the generic keyword catch-all.
type Rule struct {
	Pattern  *regexp.Regexp
	Kind     domain.ErrorKind
	Severity domain.Severity
}

// RuleSpec is the serializable form of a Rule, used for config-driven tables.
type RuleSpec struct {
	Pattern  string `yaml:"pattern"`
	Kind     string `yaml:"kind"`
	Severity string `yaml:"severity"`
}

// criticalMarkers force severity to critical regardless of the matched rule.
var criticalMarkers = []string{"CRITICAL", "FATAL", "CRASH"}

// Classifier matches log lines against an ordered rule table. It performs no
// I/O and holds no mutable state, so Classify is safe for concurrent use and
// identical input always yields an identical event.
type Classifier struct {
	rules []Rule
}

// DefaultRules returns the built-in classification table, most specific first.
func DefaultRules() []Rule {
	return []Rule{
		{regexp.MustCompile(`(?i)(ConnectionError.*timeout|HTTPConnectionPool.*timeout|inference.*timeout)`), domain.KindServiceTimeout, domain.SeverityHigh},
		{regexp.MustCompile(`(?i)(MemoryError|Out of memory|Cannot allocate memory|OOM)`), domain.KindMemoryError, domain.SeverityHigh},
		{regexp.MustCompile(`(?i)(No space left on device|Disk full)`), domain.KindDiskSpace, domain.SeverityHigh},
		{regexp.MustCompile(`(?i)(quota.*exceeded|rate.?limit|\b429\b)`), domain.KindAPIQuota, domain.SeverityMedium},
		{regexp.MustCompile(`(?i)(ffmpeg.*error|Broken pipe.*ffmpeg)`), domain.KindMediaToolError, domain.SeverityMedium},
		{regexp.MustCompile(`(?i)(ModuleNotFoundError|ImportError|cannot find package)`), domain.KindDependencyMissing, domain.SeverityMedium},
		{regexp.MustCompile(`(?i)(PermissionError|Permission denied)`), domain.KindPermissionError, domain.SeverityMedium},
		{regexp.MustCompile(`(?i)(ConnectionError|Network.*unreachable|DNS.*fail|connection refused)`), domain.KindNetworkError, domain.SeverityHigh},
		{regexp.MustCompile(`(?i)(panic:|segmentation fault|core dumped|process.*crashed)`), domain.KindProcessCrash, domain.SeverityCritical},
		// Generic catch-all must stay last.
		{regexp.MustCompile(`(ERROR|CRITICAL|FAILED|EXCEPTION)[:\s]`), domain.KindGeneralError, domain.SeverityMedium},
	}
}

// New creates a classifier with the given rule table. Pass DefaultRules()
// optionally extended with config-supplied rules; new patterns are data
// changes, not code changes.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Compile builds rules from their serializable form and prepends them to the
// defaults so operator-supplied patterns take precedence.
func Compile(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs)+len(DefaultRules()))
	for _, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, Rule{
			Pattern:  re,
			Kind:     domain.ErrorKind(s.Kind),
			Severity: parseSeverity(s.Severity),
		})
	}
	return append(rules, DefaultRules()...), nil
}

func parseSeverity(s string) domain.Severity {
	switch strings.ToLower(s) {
	case "low":
		return domain.SeverityLow
	case "high":
		return domain.SeverityHigh
	case "critical":
		return domain.SeverityCritical
	default:
		return domain.SeverityMedium
	}
}

// Classify evaluates the rule table against one line. It returns nil, false
// when no rule matches. The returned event carries no ID or timestamp; the
// caller stamps those at detection so Classify stays referentially
// transparent.
func (c *Classifier) Classify(line, sourceID string) (*domain.ErrorEvent, bool) {
	for _, rule := range c.rules {
		if !rule.Pattern.MatchString(line) {
			continue
		}

		severity := rule.Severity
		upper := strings.ToUpper(line)
		for _, marker := range criticalMarkers {
			if strings.Contains(upper, marker) {
				severity = domain.SeverityCritical
				break
			}
		}

		return &domain.ErrorEvent{
			Kind:     rule.Kind,
			Severity: severity,
			Raw:      line,
			SourceID: sourceID,
		}, true
	}
	return nil, false
}
