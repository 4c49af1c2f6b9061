// Package control wires the monitoring pipeline together and manages its
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/haidang-dev/warden/internal/alerting"
	"github.com/haidang-dev/warden/internal/core/config"
	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/healing"
	"github.com/haidang-dev/warden/internal/health"
	redisclient "github.com/haidang-dev/warden/internal/infra/redis"
	"github.com/haidang-dev/warden/internal/infra/storage"
	"github.com/haidang-dev/warden/internal/infra/storage/memory"
	"github.com/haidang-dev/warden/internal/infra/storage/postgres"
	"github.com/haidang-dev/warden/internal/monitor/classify"
	"github.com/haidang-dev/warden/internal/monitor/logwatch"
	"github.com/haidang-dev/warden/internal/monitor/processor"
	"github.com/haidang-dev/warden/internal/recovery"
)

// Warden is the main application struct that manages the monitoring and
// remediation lifecycle.
type Warden struct {
	cfg          *config.AppConfig
	watcher      *logwatch.Watcher
	processor    *processor.Processor
	coordinator  *healing.Coordinator
	dispatcher   *alerting.Dispatcher
	probe        *health.Probe
	statusServer *health.Server
	wrapper      *recovery.Wrapper
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	cancel context.CancelFunc
}

// NewWarden creates a Warden instance with all dependencies initialized.
func NewWarden(cfg *config.AppConfig) (*Warden, error) {
	// 1. Initialize Storage
	var historyRepo storage.HealingHistoryRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		historyRepo = postgres.NewHealingHistoryRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		historyRepo = memory.NewHealingHistoryRepo(cfg.Healing.HistoryLimit)
		slog.Info("Using memory storage")
	}

	// 2. Optional Redis for cooldown persistence
	var redisClient *redisclient.Client
	var cooldowns healing.CooldownStore
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, cooldowns are in-memory only", "error", err)
		} else {
			cooldowns = redisClient
		}
	}

	// 3. Alerting
	fallback, err := alerting.NewFallbackWriter(cfg.Alerts.FallbackDir)
	if err != nil {
		return nil, err
	}
	sender := alerting.NewWebhookSender(cfg.Alerts.WebhookURL, cfg.Alerts.WebhookTimeout)
	dispatcher := alerting.NewDispatcher(cfg.Alerts, sender, fallback)

	// 4. Healing
	actions := healing.DefaultActions(cfg.Healing, cfg.Health)
	coordinator := healing.NewCoordinator(
		healing.Config{
			ExecTimeout:        healing.DefaultConfig().ExecTimeout,
			EmergencyThreshold: cfg.Healing.EmergencyThreshold,
			EmergencyWindow:    cfg.Healing.EmergencyWindow,
			HistoryRetention:   cfg.Healing.HistoryRetention,
		},
		actions,
		historyRepo,
		dispatcher.HandleSignal,
		cooldowns,
	)

	// 5. Detection pipeline
	rules, err := classify.Compile(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid classification rule: %w", err)
	}
	classifier := classify.New(rules)

	proc := processor.New(processor.Config{
		Tick:            cfg.Processor.Tick,
		RateThreshold:   cfg.Processor.RateThreshold,
		RepeatThreshold: cfg.Processor.RepeatThreshold,
		RepeatWindow:    cfg.Processor.RepeatWindow,
		RingSize:        cfg.Processor.RingSize,
	}, coordinator.HandleSignal, dispatcher.HandleSignal)

	sources := make([]logwatch.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, logwatch.Source{ID: s.ID, Path: s.Path})
	}
	watcher := logwatch.NewWatcher(logwatch.Config{
		PollInterval: cfg.Watcher.PollInterval,
		ErrorBackoff: cfg.Watcher.ErrorBackoff,
	}, sources, func(sourceID, line string) {
		ev, ok := classifier.Classify(line, sourceID)
		if !ok {
			return
		}
		ev.ID = uuid.New().String()
		ev.Timestamp = time.Now()
		proc.Enqueue(ev)
	})

	// 6. Health probe and status server
	probe := health.NewProbe(cfg.Health, health.BuildChecks(cfg.Health), func(sig domain.Signal) {
		coordinator.HandleSignal(sig)
		dispatcher.HandleSignal(sig)
	})
	statusServer := health.NewServer(probe, proc, coordinator, cfg.Server.Port)

	return &Warden{
		cfg:          cfg,
		watcher:      watcher,
		processor:    proc,
		coordinator:  coordinator,
		dispatcher:   dispatcher,
		probe:        probe,
		statusServer: statusServer,
		wrapper:      recovery.NewWrapper(cfg.Recovery, coordinator),
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Start starts the warden and all its components.
func (w *Warden) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		if err := w.statusServer.Start(); err != nil {
			w.log.Error("Status server failed", "error", err)
		}
	}()

	go w.probe.Run(ctx)

	if w.db != nil {
		w.db.StartMetricsCollector(ctx)
	}

	go func() {
		if err := w.processor.Run(ctx); err != nil {
			w.log.Error("Event processor failed", "error", err)
		}
	}()

	go w.dispatcher.Run()
	go w.coordinator.Run(ctx)

	w.log.Info("Starting log watcher", "sources", len(w.cfg.Sources))
	go func() {
		if err := w.watcher.Run(ctx); err != nil {
			w.log.Error("Log watcher failed", "error", err)
		}
	}()

	return nil
}

// Stop stops the warden. Pending alerts get one final flush.
func (w *Warden) Stop(ctx context.Context) error {
	w.log.Info("Stopping Warden...")

	if w.cancel != nil {
		w.cancel()
	}

	w.dispatcher.Stop()

	if w.redisClient != nil {
		if err := w.redisClient.Close(); err != nil {
			w.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			w.log.Warn("Failed to close database", "error", err)
		}
	}

	return w.statusServer.Stop(ctx)
}

// Recovery returns the retry wrapper for collaborators that want automatic
// remediation around their own operations.
func (w *Warden) Recovery() *recovery.Wrapper {
	return w.wrapper
}
