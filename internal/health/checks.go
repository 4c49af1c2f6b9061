package health

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/haidang-dev/warden/internal/core/config"
)

// Check probes one aspect of the system.
type Check struct {
	Name string
	Run  func(ctx context.Context) CheckResult
}

// BuildChecks assembles the check set from configuration. Checks with no
// configured target are left out.
func BuildChecks(cfg config.HealthConfig) []Check {
	checks := []Check{
		{Name: "memory", Run: memoryCheck(cfg.MemoryWarn, cfg.MemoryCrit)},
		{Name: "disk", Run: diskCheck(cfg.DiskPath, cfg.DiskWarn, cfg.DiskCrit)},
		{Name: "cpu", Run: cpuCheck(cfg.CPUWarn)},
	}
	if cfg.InferenceURL != "" {
		checks = append(checks, Check{Name: "inference_service", Run: httpCheck("inference_service", cfg.InferenceURL)})
	}
	if cfg.NetworkURL != "" {
		checks = append(checks, Check{Name: "network", Run: httpCheck("network", cfg.NetworkURL)})
	}
	if len(cfg.MediaToolCmd) > 0 {
		checks = append(checks, Check{Name: "media_tool", Run: commandCheck("media_tool", cfg.MediaToolCmd)})
	}
	return checks
}

func memoryCheck(warn, crit float64) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return errorResult("memory", err)
		}
		return thresholdResult("memory", vm.UsedPercent, warn, crit,
			fmt.Sprintf("%.1f%% used, %.1f GB available", vm.UsedPercent, float64(vm.Available)/1e9))
	}
}

func diskCheck(path string, warn, crit float64) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return errorResult("disk", err)
		}
		return thresholdResult("disk", usage.UsedPercent, warn, crit,
			fmt.Sprintf("%.1f%% used on %s, %.1f GB free", usage.UsedPercent, path, float64(usage.Free)/1e9))
	}
}

func cpuCheck(warn float64) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		// A short sampling interval keeps the probe responsive.
		percents, err := cpu.PercentWithContext(ctx, time.Second, false)
		if err != nil || len(percents) == 0 {
			return errorResult("cpu", err)
		}
		used := percents[0]
		status := StatusHealthy
		if used >= warn {
			status = StatusWarning
		}
		return CheckResult{
			Name:   "cpu",
			Status: status,
			Value:  used,
			Detail: fmt.Sprintf("%.1f%% utilization", used),
		}
	}
}

func httpCheck(name, url string) func(ctx context.Context) CheckResult {
	client := &http.Client{}
	return func(ctx context.Context) CheckResult {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errorResult(name, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return CheckResult{Name: name, Status: StatusCritical, Detail: "unreachable: " + err.Error()}
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return CheckResult{Name: name, Status: StatusCritical, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return CheckResult{Name: name, Status: StatusHealthy, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
}

func commandCheck(name string, cmd []string) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
		if err := c.Run(); err != nil {
			return CheckResult{Name: name, Status: StatusCritical, Detail: "command failed: " + err.Error()}
		}
		return CheckResult{Name: name, Status: StatusHealthy, Detail: "available"}
	}
}

func thresholdResult(name string, value, warn, crit float64, detail string) CheckResult {
	status := StatusHealthy
	switch {
	case value >= crit:
		status = StatusCritical
	case value >= warn:
		status = StatusWarning
	}
	return CheckResult{Name: name, Status: status, Value: value, Detail: detail}
}

func errorResult(name string, err error) CheckResult {
	detail := "check failed"
	if err != nil {
		detail = err.Error()
	}
	return CheckResult{Name: name, Status: StatusError, Detail: detail}
}
