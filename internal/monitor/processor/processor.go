// Package processor buffers classified error events and runs trend analysis.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/monitor/metrics"
)

// Handler receives signals raised by the processor.
type Handler func(domain.Signal)

// Config tunes buffering and trend thresholds.
type Config struct {
	Tick            time.Duration
	RateThreshold   int
	RepeatThreshold int
	RepeatWindow    time.Duration
	RingSize        int
}

// Summary is a point-in-time view of detected errors, published after every
// tick for the HTTP surface.
type Summary struct {
	TotalDetected int                      `json:"total_detected"`
	LastHour      int                      `json:"errors_last_hour"`
	ByKind        map[domain.ErrorKind]int `json:"by_kind"`
	Recent        []*domain.ErrorEvent     `json:"recent"`
}

// Processor owns the event ring buffer and per-kind timestamp history. All
// mutable state lives on the Run goroutine; intake happens over a channel and
// the summary is published through an atomic snapshot, so no lock is needed.
type Processor struct {
	cfg      Config
	intake   chan *domain.ErrorEvent
	urgent   chan domain.Signal
	handlers []Handler

	ring     []*domain.ErrorEvent
	history  map[domain.ErrorKind][]time.Time
	byKind   map[domain.ErrorKind]int
	total    int
	lastSeen map[domain.ErrorKind]time.Time // last REPEATED_ERROR emission per kind

	summary atomic.Pointer[Summary]
}

// New creates a processor. Handlers are invoked for every raised signal, in
// registration order.
func New(cfg Config, handlers ...Handler) *Processor {
	if cfg.Tick == 0 {
		cfg.Tick = time.Second
	}
	if cfg.RingSize == 0 {
		cfg.RingSize = 100
	}
	p := &Processor{
		cfg:      cfg,
		intake:   make(chan *domain.ErrorEvent, 256),
		urgent:   make(chan domain.Signal, 64),
		handlers: handlers,
		history:  make(map[domain.ErrorKind][]time.Time),
		byKind:   make(map[domain.ErrorKind]int),
		lastSeen: make(map[domain.ErrorKind]time.Time),
	}
	p.summary.Store(&Summary{ByKind: map[domain.ErrorKind]int{}})
	return p
}

// Enqueue accepts one classified event. Events with severity high or above
// raise an immediate signal, independent of tick boundaries; the signal is
// handed to the urgent forwarding goroutine, handlers never run on the
// caller's goroutine. When either buffer is full the item is dropped with a
// log; detection must never block the watcher.
func (p *Processor) Enqueue(ev *domain.ErrorEvent) {
	metrics.EventsClassified.WithLabelValues(string(ev.Kind), ev.Severity.String()).Inc()

	if ev.Severity >= domain.SeverityHigh {
		sig := domain.Signal{
			Type:      domain.SignalCritical,
			Kind:      ev.Kind,
			Severity:  ev.Severity,
			Detail:    ev.Raw,
			Timestamp: ev.Timestamp,
		}
		select {
		case p.urgent <- sig:
		default:
			slog.Warn("Urgent signal buffer full, dropping signal", "kind", ev.Kind)
		}
	}

	select {
	case p.intake <- ev:
	default:
		slog.Warn("Event intake full, dropping event", "kind", ev.Kind, "source", ev.SourceID)
	}
}

// Run drives the tick loop until ctx is cancelled. Each tick drains every
// buffered event before trend analysis, so analysis always sees a consistent
// snapshot and is never interleaved with the next tick's inserts. Urgent
// signals are forwarded on their own goroutine, outside the tick cadence.
func (p *Processor) Run(ctx context.Context) error {
	go p.forwardUrgent(ctx)

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(time.Now())
		}
	}
}

// forwardUrgent delivers buffered high-severity signals to the handlers
// until ctx is cancelled.
func (p *Processor) forwardUrgent(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-p.urgent:
			p.emit(sig)
		}
	}
}

// flushUrgent synchronously delivers whatever urgent signals are buffered.
func (p *Processor) flushUrgent() {
	for {
		select {
		case sig := <-p.urgent:
			p.emit(sig)
		default:
			return
		}
	}
}

func (p *Processor) tick(now time.Time) {
	drained := 0
	for {
		select {
		case ev := <-p.intake:
			p.buffer(ev)
			drained++
		default:
			p.analyze(now, drained)
			p.publish(now)
			return
		}
	}
}

func (p *Processor) buffer(ev *domain.ErrorEvent) {
	p.ring = append(p.ring, ev)
	if len(p.ring) > p.cfg.RingSize {
		p.ring = p.ring[len(p.ring)-p.cfg.RingSize:]
	}
	p.history[ev.Kind] = append(p.history[ev.Kind], ev.Timestamp)
	p.byKind[ev.Kind]++
	p.total++
}

func (p *Processor) analyze(now time.Time, drained int) {
	if p.cfg.RateThreshold > 0 && drained >= p.cfg.RateThreshold {
		p.emit(domain.Signal{
			Type:      domain.SignalHighErrorRate,
			Kind:      domain.KindGeneralError,
			Severity:  domain.SeverityHigh,
			Detail:    fmt.Sprintf("%d errors within one tick", drained),
			Count:     drained,
			Timestamp: now,
		})
	}

	cutoff := now.Add(-p.cfg.RepeatWindow)
	for kind, stamps := range p.history {
		// Prune the trailing window in place.
		keep := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				keep = append(keep, ts)
			}
		}
		p.history[kind] = keep

		if p.cfg.RepeatThreshold > 0 && len(keep) >= p.cfg.RepeatThreshold {
			// One signal per kind per window, not one per event.
			if last, ok := p.lastSeen[kind]; ok && now.Sub(last) < p.cfg.RepeatWindow {
				continue
			}
			p.lastSeen[kind] = now
			p.emit(domain.Signal{
				Type:      domain.SignalRepeatedError,
				Kind:      kind,
				Severity:  domain.SeverityHigh,
				Detail:    fmt.Sprintf("%d %s errors within %s", len(keep), kind, p.cfg.RepeatWindow),
				Count:     len(keep),
				Timestamp: now,
			})
		}
	}
}

func (p *Processor) publish(now time.Time) {
	hourAgo := now.Add(-time.Hour)
	lastHour := 0
	recent := make([]*domain.ErrorEvent, len(p.ring))
	copy(recent, p.ring)
	for _, ev := range recent {
		if ev.Timestamp.After(hourAgo) {
			lastHour++
		}
	}

	byKind := make(map[domain.ErrorKind]int, len(p.byKind))
	for k, v := range p.byKind {
		byKind[k] = v
	}

	p.summary.Store(&Summary{
		TotalDetected: p.total,
		LastHour:      lastHour,
		ByKind:        byKind,
		Recent:        recent,
	})
}

// Summary returns the snapshot published at the end of the last tick.
func (p *Processor) Summary() *Summary {
	return p.summary.Load()
}

func (p *Processor) emit(sig domain.Signal) {
	metrics.SignalsRaised.WithLabelValues(string(sig.Type)).Inc()
	for _, h := range p.handlers {
		h(sig)
	}
}
