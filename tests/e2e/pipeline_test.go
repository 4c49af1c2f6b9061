package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haidang-dev/warden/internal/control"
	"github.com/haidang-dev/warden/internal/core/config"
)

// TestDetectionToAlertPipeline drives the full path: a line appended to a
// watched log must reach the webhook as an alert.
func TestDetectionToAlertPipeline(t *testing.T) {
	var mu sync.Mutex
	var payloads []map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			mu.Lock()
			payloads = append(payloads, p)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("failed to create log file: %v", err)
	}

	cfgPath := writeTestConfig(t, fmt.Sprintf(`
server:
  port: 18474
sources:
  - id: app
    path: %s
alerts:
  webhook_url: %s
  flush_interval: 200ms
  fallback_dir: %s
health:
  interval: 1h
  network_url: http://localhost:18474/health
  media_tool_cmd: ["true"]
`, logPath, hook.URL, filepath.Join(dir, "alerts")))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	warden, err := control.NewWarden(cfg)
	if err != nil {
		t.Fatalf("failed to create warden: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := warden.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = warden.Stop(stopCtx)
	}()

	// Let the watcher seek to the end of the file.
	time.Sleep(500 * time.Millisecond)

	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	if _, err := f.WriteString("CRITICAL: ConnectionError: inference timeout after 30s\n"); err != nil {
		t.Fatalf("failed to append log line: %v", err)
	}
	f.Close()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(payloads)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	mu.Lock()
	received := make([]map[string]any, len(payloads))
	copy(received, payloads)
	mu.Unlock()

	if len(received) == 0 {
		t.Fatal("no alert reached the webhook")
	}
	found := false
	for _, p := range received {
		if text, ok := p["text"].(string); ok && strings.Contains(text, "inference timeout") {
			found = true
		}
	}
	if !found {
		t.Errorf("no payload mentions the detected error: %v", received)
	}

	// The summary publishes on the next tick; give it one.
	time.Sleep(1500 * time.Millisecond)
	resp, err := http.Get("http://localhost:18474/errors")
	if err != nil {
		t.Fatalf("failed to query /errors: %v", err)
	}
	defer resp.Body.Close()
	var sum struct {
		TotalDetected int `json:"total_detected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if sum.TotalDetected < 1 {
		t.Errorf("TotalDetected = %d, want at least 1", sum.TotalDetected)
	}
}
