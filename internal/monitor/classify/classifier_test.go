package classify

import (
	"testing"

	"github.com/haidang-dev/warden/internal/core/domain"
)

func TestClassifyKnownPatterns(t *testing.T) {
	c := New(DefaultRules())

	cases := []struct {
		line     string
		kind     domain.ErrorKind
		severity domain.Severity
	}{
		{"ConnectionError: HTTPSConnectionPool timeout after 30s", domain.KindServiceTimeout, domain.SeverityHigh},
		{"inference request timeout exceeded", domain.KindServiceTimeout, domain.SeverityHigh},
		{"MemoryError: unable to allocate 2.5 GiB", domain.KindMemoryError, domain.SeverityHigh},
		{"OSError: No space left on device", domain.KindDiskSpace, domain.SeverityHigh},
		{"API quota exceeded, retry after 3600s", domain.KindAPIQuota, domain.SeverityMedium},
		{"HTTP 429 Too Many Requests", domain.KindAPIQuota, domain.SeverityMedium},
		{"ffmpeg returned error code 1", domain.KindMediaToolError, domain.SeverityMedium},
		{"ModuleNotFoundError: No module named 'whisper'", domain.KindDependencyMissing, domain.SeverityMedium},
		{"PermissionError: [Errno 13] Permission denied", domain.KindPermissionError, domain.SeverityMedium},
		{"connection refused by upstream", domain.KindNetworkError, domain.SeverityHigh},
		{"panic: runtime error: invalid memory address", domain.KindProcessCrash, domain.SeverityCritical},
		{"ERROR: something unexpected happened", domain.KindGeneralError, domain.SeverityMedium},
	}

	for _, tc := range cases {
		ev, ok := c.Classify(tc.line, "app")
		if !ok {
			t.Errorf("line %q: expected a match", tc.line)
			continue
		}
		if ev.Kind != tc.kind {
			t.Errorf("line %q: kind = %s, want %s", tc.line, ev.Kind, tc.kind)
		}
		if ev.Severity != tc.severity {
			t.Errorf("line %q: severity = %s, want %s", tc.line, ev.Severity, tc.severity)
		}
	}
}

func TestClassifyNoMatch(t *testing.T) {
	c := New(DefaultRules())
	for _, line := range []string{
		"INFO: request completed in 12ms",
		"processing batch 42 of 100",
		"",
	} {
		if ev, ok := c.Classify(line, "app"); ok {
			t.Errorf("line %q: unexpected match %+v", line, ev)
		}
	}
}

func TestSpecificRuleWinsOverCatchAll(t *testing.T) {
	c := New(DefaultRules())
	// The line contains both a specific pattern and the generic ERROR
	// keyword; the specific rule must win.
	ev, ok := c.Classify("ERROR: MemoryError during model load", "app")
	if !ok {
		t.Fatal("expected a match")
	}
	if ev.Kind != domain.KindMemoryError {
		t.Errorf("kind = %s, want %s", ev.Kind, domain.KindMemoryError)
	}
}

func TestCriticalMarkerOverridesSeverity(t *testing.T) {
	c := New(DefaultRules())
	ev, ok := c.Classify("CRITICAL: ffmpeg error while encoding", "app")
	if !ok {
		t.Fatal("expected a match")
	}
	if ev.Kind != domain.KindMediaToolError {
		t.Errorf("kind = %s, want %s", ev.Kind, domain.KindMediaToolError)
	}
	if ev.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", ev.Severity)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(DefaultRules())
	line := "ConnectionError: inference timeout"
	a, _ := c.Classify(line, "app")
	b, _ := c.Classify(line, "app")
	if *a != *b {
		t.Errorf("identical input produced different events: %+v vs %+v", a, b)
	}
}

func TestCompilePrependsConfigRules(t *testing.T) {
	rules, err := Compile([]RuleSpec{
		{Pattern: `(?i)custom widget failure`, Kind: "media_tool_error", Severity: "high"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	c := New(rules)

	ev, ok := c.Classify("ERROR: custom widget failure in pipeline", "app")
	if !ok {
		t.Fatal("expected a match")
	}
	if ev.Kind != domain.KindMediaToolError {
		t.Errorf("kind = %s, want %s", ev.Kind, domain.KindMediaToolError)
	}
	if ev.Severity != domain.SeverityHigh {
		t.Errorf("severity = %s, want high", ev.Severity)
	}
}

func TestCompileRejectsBadPattern(t *testing.T) {
	if _, err := Compile([]RuleSpec{{Pattern: "("}}); err == nil {
		t.Fatal("expected an error for an invalid pattern")
	}
}
