package alerting

import "github.com/haidang-dev/warden/internal/core/domain"

// HintsFor returns operator guidance attached to alerts for a given error
// kind.
func HintsFor(kind domain.ErrorKind) []string {
	switch kind {
	case domain.KindServiceTimeout:
		return []string{
			"Check that the inference service is running",
			"Restart the inference service if it is unresponsive",
			"Verify the service port is reachable",
		}
	case domain.KindMemoryError:
		return []string{
			"Close unused applications to free memory",
			"Consider switching to a smaller model",
			"Restart the service to release leaked memory",
		}
	case domain.KindDiskSpace:
		return []string{
			"Remove old files from scratch directories",
			"Clear temporary and cache directories",
			"Move large artifacts to external storage",
		}
	case domain.KindAPIQuota:
		return []string{
			"Wait for the API quota window to reset",
			"Switch to a local fallback where available",
			"Review request volume against plan limits",
		}
	case domain.KindMediaToolError:
		return []string{
			"Verify the media tool is installed and on PATH",
			"Check the input file is not corrupted",
			"Inspect codec support for the input format",
		}
	case domain.KindDependencyMissing:
		return []string{
			"Install the missing package",
			"Verify the runtime environment is activated",
		}
	case domain.KindPermissionError:
		return []string{
			"Check file and directory permissions",
			"Verify the process runs as the expected user",
		}
	case domain.KindNetworkError:
		return []string{
			"Check network connectivity",
			"Verify DNS resolution and proxy settings",
		}
	case domain.KindProcessCrash:
		return []string{
			"Inspect the crash log for a stack trace",
			"Restart the crashed process",
		}
	default:
		return []string{"Inspect recent logs for details"}
	}
}
