package config

import (
	"time"

	redisclient "github.com/haidang-dev/warden/internal/infra/redis"
	"github.com/haidang-dev/warden/internal/infra/storage/postgres"
	"github.com/haidang-dev/warden/internal/monitor/classify"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Logging   LoggingConfig       `yaml:"logging"`
	Sources   []SourceConfig      `yaml:"sources"`
	Watcher   WatcherConfig       `yaml:"watcher"`
	Rules     []classify.RuleSpec `yaml:"rules"`
	Alerts    AlertConfig         `yaml:"alerts"`
	Processor ProcessorConfig     `yaml:"processor"`
	Healing   HealingConfig       `yaml:"healing"`
	Health    HealthConfig        `yaml:"health"`
	Recovery  RecoveryConfig      `yaml:"recovery"`
	Database  postgres.Config     `yaml:"database"`
	Redis     redisclient.Config  `yaml:"redis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SourceConfig identifies one append-only log stream to tail.
type SourceConfig struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

// AlertConfig holds outbound notification settings.
type AlertConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	MaxQueue       int           `yaml:"max_queue"`
	MaxBatch       int           `yaml:"max_batch"`
	MaxPerHour     int           `yaml:"max_per_hour"`
	MaxPerDay      int           `yaml:"max_per_day"`
	FallbackDir    string        `yaml:"fallback_dir"`
}

// ProcessorConfig tunes the event queue and trend analysis.
type ProcessorConfig struct {
	Tick            time.Duration `yaml:"tick"`
	RateThreshold   int           `yaml:"rate_threshold"`
	RepeatThreshold int           `yaml:"repeat_threshold"`
	RepeatWindow    time.Duration `yaml:"repeat_window"`
	RingSize        int           `yaml:"ring_size"`
}

// WatcherConfig tunes the log tailer loops.
type WatcherConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
}

// HealingConfig tunes the remediation coordinator.
type HealingConfig struct {
	HistoryLimit       int                      `yaml:"history_limit"`
	HistoryRetention   time.Duration            `yaml:"history_retention"`
	EmergencyThreshold int                      `yaml:"emergency_threshold"`
	EmergencyWindow    time.Duration            `yaml:"emergency_window"`
	EmergencyCooldown  time.Duration            `yaml:"emergency_cooldown"`
	Cooldowns          map[string]time.Duration `yaml:"cooldowns"`
	TempDirs           []string                 `yaml:"temp_dirs"`
	ServiceRestartCmd  []string                 `yaml:"service_restart_cmd"`
}

// HealthConfig tunes the periodic health probe.
type HealthConfig struct {
	Interval     time.Duration `yaml:"interval"`
	MemoryWarn   float64       `yaml:"memory_warn"`
	MemoryCrit   float64       `yaml:"memory_crit"`
	DiskWarn     float64       `yaml:"disk_warn"`
	DiskCrit     float64       `yaml:"disk_crit"`
	CPUWarn      float64       `yaml:"cpu_warn"`
	DiskPath     string        `yaml:"disk_path"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	InferenceURL string        `yaml:"inference_url"`
	MediaToolCmd []string      `yaml:"media_tool_cmd"`
	NetworkURL   string        `yaml:"network_url"`
}

// RecoveryConfig tunes the retry wrapper offered to collaborators.
type RecoveryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Delay      time.Duration `yaml:"delay"`
}
