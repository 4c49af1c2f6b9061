package healing

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/haidang-dev/warden/internal/core/config"
	"github.com/haidang-dev/warden/internal/core/domain"
)

const staleFileAge = 2 * time.Hour

// DefaultActions builds the built-in remediation set. Cooldowns can be
// overridden per action ID through cfg.Cooldowns.
func DefaultActions(cfg config.HealingConfig, health config.HealthConfig) []*Action {
	actions := []*Action{
		{
			ID:       "restart_inference_service",
			Kind:     domain.KindServiceTimeout,
			Cooldown: 5 * time.Minute,
			Execute:  restartService(cfg.ServiceRestartCmd, health.InferenceURL),
		},
		{
			ID:       "restart_crashed_service",
			Kind:     domain.KindProcessCrash,
			Cooldown: 5 * time.Minute,
			Execute:  restartService(cfg.ServiceRestartCmd, health.InferenceURL),
		},
		{
			ID:       "free_memory",
			Kind:     domain.KindMemoryError,
			Cooldown: 2 * time.Minute,
			Execute:  freeMemory,
		},
		{
			ID:       "clean_disk",
			Kind:     domain.KindDiskSpace,
			Cooldown: 10 * time.Minute,
			Execute:  cleanDisk(cfg.TempDirs),
		},
		{
			ID:       "wait_for_network",
			Kind:     domain.KindNetworkError,
			Cooldown: time.Minute,
			Execute:  waitForNetwork(health.NetworkURL),
		},
		{
			ID:       domain.EmergencyActionID,
			Kind:     domain.KindGeneralError,
			Cooldown: cfg.EmergencyCooldown,
			Execute:  emergencyRemediation(cfg, health),
		},
	}
	for _, a := range actions {
		if override, ok := cfg.Cooldowns[a.ID]; ok {
			a.Cooldown = override
		}
	}
	return actions
}

// restartService runs the configured restart command and, when a service URL
// is known, waits for it to answer before declaring success.
func restartService(cmd []string, verifyURL string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if len(cmd) == 0 {
			return "", fmt.Errorf("no restart command configured")
		}
		c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
		if out, err := c.CombinedOutput(); err != nil {
			return "", fmt.Errorf("restart command failed: %w: %s", err, string(out))
		}
		if verifyURL == "" {
			return "service restarted", nil
		}
		if err := waitReachable(ctx, verifyURL, 2*time.Second); err != nil {
			return "", fmt.Errorf("service restarted but not reachable: %w", err)
		}
		return "service restarted and reachable", nil
	}
}

func waitReachable(ctx context.Context, url string, interval time.Duration) error {
	client := &http.Client{Timeout: interval}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// freeMemory forces a collection cycle and returns released pages to the OS.
func freeMemory(_ context.Context) (string, error) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)
	freed := int64(before.HeapInuse) - int64(after.HeapInuse)
	return fmt.Sprintf("freed %d bytes of heap", max(freed, 0)), nil
}

// cleanDisk removes stale files from the configured scratch directories.
// Only files older than staleFileAge are touched; directories are left alone.
func cleanDisk(dirs []string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		cutoff := time.Now().Add(-staleFileAge)
		removed := 0
		var reclaimed int64
		for _, dir := range dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				if entry.IsDir() {
					continue
				}
				info, err := entry.Info()
				if err != nil || info.ModTime().After(cutoff) {
					continue
				}
				path := filepath.Join(dir, entry.Name())
				if err := os.Remove(path); err == nil {
					removed++
					reclaimed += info.Size()
				}
			}
		}
		return fmt.Sprintf("removed %d stale files, reclaimed %d bytes", removed, reclaimed), nil
	}
}

// waitForNetwork blocks until the probe URL answers or the context expires.
func waitForNetwork(url string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if url == "" {
			return "", fmt.Errorf("no network probe url configured")
		}
		if err := waitReachable(ctx, url, 3*time.Second); err != nil {
			return "", fmt.Errorf("network still unreachable: %w", err)
		}
		return "network connectivity restored", nil
	}
}

// emergencyRemediation chains the heavy hammers: reclaim memory, clear
// scratch space, then restart the service.
func emergencyRemediation(cfg config.HealingConfig, health config.HealthConfig) func(ctx context.Context) (string, error) {
	clean := cleanDisk(cfg.TempDirs)
	restart := restartService(cfg.ServiceRestartCmd, health.InferenceURL)
	return func(ctx context.Context) (string, error) {
		memDetail, _ := freeMemory(ctx)
		diskDetail, err := clean(ctx)
		if err != nil {
			return "", err
		}
		restartDetail, err := restart(ctx)
		if err != nil {
			return "", fmt.Errorf("emergency restart failed: %w", err)
		}
		return fmt.Sprintf("%s; %s; %s", memDetail, diskDetail, restartDetail), nil
	}
}
