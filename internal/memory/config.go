package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"synothumb/internal/logging"
)

const (
	// DefaultMemoryRatio is the fraction of the memory budget given to the Go heap.
	// The rest is reserved for ffmpeg, exiftool, libvips and goroutine stacks.
	DefaultMemoryRatio = 0.85
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source indicates where the configuration came from
	Source string // "GOMEMLIMIT", "MEMORY_LIMIT", "host" or "none"

	// BudgetBytes is the memory budget in bytes (0 if not known)
	BudgetBytes int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the environment, falling back to
// the host's physical memory.
//
// Environment variables:
//   - GOMEMLIMIT: If set, this takes precedence (standard Go env var)
//   - MEMORY_LIMIT: Memory budget in bytes
//   - MEMORY_RATIO: Optional ratio of the budget to use for Go heap (default: 0.85)
func ConfigureFromEnv() ConfigResult {
	return configure(hostTotalMemory)
}

func configure(hostTotal func() (uint64, error)) ConfigResult {
	result := ConfigResult{}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	var budget int64
	if memLimitStr := os.Getenv("MEMORY_LIMIT"); memLimitStr != "" {
		memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
		if err != nil || memLimit <= 0 {
			logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", memLimitStr, err)
		} else {
			budget = memLimit
			result.Source = "MEMORY_LIMIT"
		}
	}

	if budget == 0 {
		total, err := hostTotal()
		if err != nil || total == 0 || total > math.MaxInt64 {
			logging.Debug("Host memory unavailable (%v), GOMEMLIMIT will not be configured", err)
			result.Source = "none"
			return result
		}
		budget = int64(total)
		result.Source = "host"
	}

	result.BudgetBytes = budget

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		if parsedRatio, err := strconv.ParseFloat(ratioStr, 64); err == nil {
			if parsedRatio > 0 && parsedRatio <= 1.0 {
				ratio = parsedRatio
			} else {
				logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
			}
		} else {
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		}
	}
	result.Ratio = ratio

	goMemLimit := int64(float64(budget) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.GoMemLimit = goMemLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s from %s)",
		formatBytes(goMemLimit),
		ratio*100,
		formatBytes(budget),
		result.Source,
	)

	return result
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}

// FormatBytes formats bytes into a human-readable string such as "1.5 GiB".
func FormatBytes(b int64) string {
	return formatBytes(b)
}
