package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in documented defaults for anything the file omits.
// The threshold and cooldown values are tuning knobs, not invariants.
func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Alerts.WebhookTimeout == 0 {
		cfg.Alerts.WebhookTimeout = 10 * time.Second
	}
	if cfg.Alerts.FlushInterval == 0 {
		cfg.Alerts.FlushInterval = 5 * time.Second
	}
	if cfg.Alerts.MaxQueue == 0 {
		cfg.Alerts.MaxQueue = 50
	}
	if cfg.Alerts.MaxBatch == 0 {
		cfg.Alerts.MaxBatch = 10
	}
	if cfg.Alerts.MaxPerHour == 0 {
		cfg.Alerts.MaxPerHour = 30
	}
	if cfg.Alerts.MaxPerDay == 0 {
		cfg.Alerts.MaxPerDay = 200
	}
	if cfg.Alerts.FallbackDir == "" {
		cfg.Alerts.FallbackDir = "data/alerts"
	}

	if cfg.Watcher.PollInterval == 0 {
		cfg.Watcher.PollInterval = 100 * time.Millisecond
	}
	if cfg.Watcher.ErrorBackoff == 0 {
		cfg.Watcher.ErrorBackoff = 2 * time.Second
	}

	if cfg.Processor.Tick == 0 {
		cfg.Processor.Tick = time.Second
	}
	if cfg.Processor.RateThreshold == 0 {
		cfg.Processor.RateThreshold = 5
	}
	if cfg.Processor.RepeatThreshold == 0 {
		cfg.Processor.RepeatThreshold = 3
	}
	if cfg.Processor.RepeatWindow == 0 {
		cfg.Processor.RepeatWindow = 5 * time.Minute
	}
	if cfg.Processor.RingSize == 0 {
		cfg.Processor.RingSize = 100
	}

	if cfg.Healing.HistoryLimit == 0 {
		cfg.Healing.HistoryLimit = 1000
	}
	if cfg.Healing.HistoryRetention == 0 {
		cfg.Healing.HistoryRetention = 7 * 24 * time.Hour
	}
	if cfg.Healing.EmergencyThreshold == 0 {
		cfg.Healing.EmergencyThreshold = 3
	}
	if cfg.Healing.EmergencyWindow == 0 {
		cfg.Healing.EmergencyWindow = 2 * time.Minute
	}
	if cfg.Healing.EmergencyCooldown == 0 {
		cfg.Healing.EmergencyCooldown = 10 * time.Minute
	}
	if len(cfg.Healing.TempDirs) == 0 {
		cfg.Healing.TempDirs = []string{"data/temp", "outputs"}
	}

	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = 30 * time.Second
	}
	if cfg.Health.MemoryWarn == 0 {
		cfg.Health.MemoryWarn = 85
	}
	if cfg.Health.MemoryCrit == 0 {
		cfg.Health.MemoryCrit = 95
	}
	if cfg.Health.DiskWarn == 0 {
		cfg.Health.DiskWarn = 85
	}
	if cfg.Health.DiskCrit == 0 {
		cfg.Health.DiskCrit = 95
	}
	if cfg.Health.CPUWarn == 0 {
		cfg.Health.CPUWarn = 90
	}
	if cfg.Health.DiskPath == "" {
		cfg.Health.DiskPath = "/"
	}
	if cfg.Health.ProbeTimeout == 0 {
		cfg.Health.ProbeTimeout = 10 * time.Second
	}
	if cfg.Health.NetworkURL == "" {
		cfg.Health.NetworkURL = "https://www.google.com"
	}
	if len(cfg.Health.MediaToolCmd) == 0 {
		cfg.Health.MediaToolCmd = []string{"ffmpeg", "-version"}
	}

	if cfg.Recovery.MaxRetries == 0 {
		cfg.Recovery.MaxRetries = 3
	}
	if cfg.Recovery.Delay == 0 {
		cfg.Recovery.Delay = 5 * time.Second
	}
}
