package workers

import (
	"os"
	"runtime"
	"strconv"
)

// DefaultLimit caps the CPU-derived default pool size. Explicit overrides
// are not capped.
const DefaultLimit = 32

// Count returns the number of workers for a task whose per-CPU concurrency
// is multiplier. It respects container CPU limits via GOMAXPROCS.
//
// The limit parameter caps the computed count. Use 0 for no limit.
//
// Can be overridden with THUMBNAIL_WORKERS environment variable. The
// override is taken as given.
func Count(multiplier float64, limit int) int {
	if count, ok := envOverride(); ok {
		return count
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	return capped(int(float64(available)*multiplier), limit)
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Resolve returns requested when it is positive, otherwise ForCPU(limit).
// An explicit request is never capped.
func Resolve(requested, limit int) int {
	if requested > 0 {
		return requested
	}
	return ForCPU(limit)
}

func envOverride() (int, bool) {
	override := os.Getenv("THUMBNAIL_WORKERS")
	if override == "" {
		return 0, false
	}
	count, err := strconv.Atoi(override)
	if err != nil || count <= 0 {
		return 0, false
	}
	return count, true
}

func capped(n, limit int) int {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
