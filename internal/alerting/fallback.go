package alerting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
)

// FallbackWriter appends undelivered alerts to a daily-rotated NDJSON file
// so nothing is lost when the webhook is down.
type FallbackWriter struct {
	dir string
}

// NewFallbackWriter ensures the target directory exists.
func NewFallbackWriter(dir string) (*FallbackWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create fallback directory: %w", err)
	}
	return &FallbackWriter{dir: dir}, nil
}

// Write appends each alert as one JSON line to today's file.
func (w *FallbackWriter) Write(batch []*domain.AlertMessage) error {
	path := filepath.Join(w.dir, fmt.Sprintf("alerts_%s.ndjson", time.Now().Format("20060102")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open fallback file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, a := range batch {
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to write fallback record: %w", err)
		}
	}
	return nil
}
