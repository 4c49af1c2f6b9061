// Package alerting batches and delivers outbound notifications.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haidang-dev/warden/internal/core/config"
	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// Dispatcher queues alerts and flushes them in batches on a timer. High and
// critical alerts bypass the queue and go out immediately. Failed batches
// land in the fallback file and are never requeued.
type Dispatcher struct {
	cfg      config.AlertConfig
	sender   Sender
	fallback *FallbackWriter

	mu    sync.Mutex
	queue []*domain.AlertMessage
	// hourSent/daySent implement the delivery caps. The windows reset
	// lazily on the next delivery attempt after they expire.
	hourSent  int
	daySent   int
	hourReset time.Time
	dayReset  time.Time

	stop chan struct{}
	done chan struct{}
}

// NewDispatcher wires a dispatcher with its sender and fallback writer.
func NewDispatcher(cfg config.AlertConfig, sender Sender, fallback *FallbackWriter) *Dispatcher {
	now := time.Now()
	return &Dispatcher{
		cfg:       cfg,
		sender:    sender,
		fallback:  fallback,
		hourReset: now.Add(time.Hour),
		dayReset:  now.Add(24 * time.Hour),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// HandleSignal converts a processed signal into an alert. Implements the
// processor handler contract.
func (d *Dispatcher) HandleSignal(sig domain.Signal) {
	body := sig.Detail
	if sig.Count > 0 {
		body = fmt.Sprintf("%s (%d occurrences)", sig.Detail, sig.Count)
	}
	d.Notify(&domain.AlertMessage{
		Severity:  sig.Severity,
		Title:     string(sig.Type),
		Body:      body,
		CreatedAt: time.Now(),
		Hints:     HintsFor(sig.Kind),
	})
}

// Notify enqueues one alert. High and critical alerts bypass batching and
// are sent immediately; anything else waits for the next flush. When the
// queue is full the oldest alert is dropped to make room.
func (d *Dispatcher) Notify(alert *domain.AlertMessage) {
	if alert.Severity >= domain.SeverityHigh {
		d.deliver([]*domain.AlertMessage{alert})
		return
	}

	d.mu.Lock()
	if len(d.queue) >= d.cfg.MaxQueue {
		d.queue = d.queue[1:]
		slog.Warn("Alert queue full, dropped oldest alert")
	}
	d.queue = append(d.queue, alert)
	full := len(d.queue) >= d.cfg.MaxBatch
	d.mu.Unlock()

	if full {
		d.Flush()
	}
}

// Run drives the periodic flush until Stop is called.
func (d *Dispatcher) Run() {
	defer close(d.done)
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.Flush()
		case <-d.stop:
			return
		}
	}
}

// Stop halts the flush loop, then makes one best-effort pass over whatever
// is queued at that moment, bounded to five seconds. Alerts arriving during
// the drain are not waited for.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done

	d.mu.Lock()
	pending := len(d.queue)
	d.mu.Unlock()
	if pending == 0 {
		return
	}

	passes := 1
	if d.cfg.MaxBatch > 0 {
		passes = (pending + d.cfg.MaxBatch - 1) / d.cfg.MaxBatch
	}
	deadline := time.Now().Add(5 * time.Second)
	for i := 0; i < passes && time.Now().Before(deadline); i++ {
		d.Flush()
	}
}

// Flush sends at most one batch of queued alerts.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	n := len(d.queue)
	if n > d.cfg.MaxBatch {
		n = d.cfg.MaxBatch
	}
	batch := make([]*domain.AlertMessage, n)
	copy(batch, d.queue[:n])
	d.queue = d.queue[n:]
	d.mu.Unlock()

	d.deliver(batch)
}

// deliver sends one batch, falling back to disk on failure or throttling.
// Exactly one error log per failed batch.
func (d *Dispatcher) deliver(batch []*domain.AlertMessage) {
	if !d.allow(len(batch)) {
		metrics.AlertsDelivered.WithLabelValues("throttled").Add(float64(len(batch)))
		d.writeFallback(batch)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WebhookTimeout)
	defer cancel()
	if err := d.sender.Send(ctx, batch); err != nil {
		slog.Error("Failed to deliver alert batch", "size", len(batch), "error", err)
		metrics.AlertsDelivered.WithLabelValues("failed").Add(float64(len(batch)))
		d.writeFallback(batch)
		return
	}
	metrics.AlertsDelivered.WithLabelValues("delivered").Add(float64(len(batch)))
}

// allow checks and consumes the hourly and daily delivery budgets.
func (d *Dispatcher) allow(n int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if now.After(d.hourReset) {
		d.hourSent = 0
		d.hourReset = now.Add(time.Hour)
	}
	if now.After(d.dayReset) {
		d.daySent = 0
		d.dayReset = now.Add(24 * time.Hour)
	}
	if d.hourSent+n > d.cfg.MaxPerHour || d.daySent+n > d.cfg.MaxPerDay {
		return false
	}
	d.hourSent += n
	d.daySent += n
	return true
}

func (d *Dispatcher) writeFallback(batch []*domain.AlertMessage) {
	if d.fallback == nil {
		return
	}
	if err := d.fallback.Write(batch); err != nil {
		slog.Error("Failed to write alert fallback", "error", err)
		return
	}
	metrics.AlertsFallback.Add(float64(len(batch)))
}
