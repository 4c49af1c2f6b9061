// Package logwatch tails append-only log files and forwards new lines.
package logwatch

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// Sink receives each new line together with the source it came from.
type Sink func(sourceID, line string)

// Source identifies one file to tail.
type Source struct {
	ID   string
	Path string
}

// Config holds watcher settings.
type Config struct {
	PollInterval time.Duration
	// ErrorBackoff is the wait after a read error before reopening a source.
	ErrorBackoff time.Duration
}

// DefaultConfig returns polling defaults that keep detection latency well
// under 200ms per line.
func DefaultConfig() Config {
	return Config{
		PollInterval: 100 * time.Millisecond,
		ErrorBackoff: 2 * time.Second,
	}
}

// Watcher runs one reader goroutine per source. Readers start at the current
// end of file so only lines written after startup are observed. A failure on
// one source never affects the others.
type Watcher struct {
	cfg     Config
	sources []Source
	sink    Sink
}

// NewWatcher creates a watcher over the given sources.
func NewWatcher(cfg Config, sources []Source, sink Sink) *Watcher {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = DefaultConfig().ErrorBackoff
	}
	return &Watcher{cfg: cfg, sources: sources, sink: sink}
}

// Run tails all sources until ctx is cancelled. Each reader exits at its next
// poll boundary, so Run returns within one poll interval of cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range w.sources {
		g.Go(func() error {
			w.tail(ctx, src)
			return nil
		})
	}
	return g.Wait()
}

// tail reads one source, reopening it after errors with backoff.
func (w *Watcher) tail(ctx context.Context, src Source) {
	for {
		if err := w.follow(ctx, src); err != nil {
			slog.Warn("Log source read failed, retrying", "source", src.ID, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.ErrorBackoff):
		}
	}
}

func (w *Watcher) follow(ctx context.Context, src Source) error {
	f, err := os.Open(src.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	// Only new lines: seek to the current end of the stream.
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	var partial []byte

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// Detect truncation (rotation in place) and restart from the top.
		if info, err := f.Stat(); err == nil && info.Size() < offset {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return err
			}
			offset = 0
			reader.Reset(f)
			partial = partial[:0]
		}

		for {
			chunk, err := reader.ReadBytes('\n')
			offset += int64(len(chunk))
			if err == io.EOF {
				// Keep incomplete line for the next poll.
				partial = append(partial, chunk...)
				break
			}
			if err != nil {
				return err
			}

			line := string(append(partial, chunk[:len(chunk)-1]...))
			partial = partial[:0]
			if line == "" {
				continue
			}
			metrics.LinesScanned.WithLabelValues(src.ID).Inc()
			w.sink(src.ID, line)
		}
	}
}
