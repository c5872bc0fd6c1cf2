// Package memory keeps thumbnail generation inside a memory budget.
//
// Decoding a 50 megapixel photo needs around 200 MB of heap, and every
// worker may hold one. Without a limit a large library on a small NAS ends
// with the process being OOM-killed halfway through.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before significant allocations:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: memory budget in bytes (for example a container limit).
//   - MEMORY_RATIO: fraction of the budget given to the Go heap (default
//     0.85). The rest is left to ffmpeg, exiftool and libvips.
//
// When neither variable is set the budget is the host's total physical
// memory as reported by gopsutil.
//
// # Decode admission
//
// [Gate] samples heap usage against the limit and admits files into
// decoding. Above the throttle ratio it admits a file only when no other
// file is decoding, until usage drops below the resume ratio. The scheduler
// calls [Gate.Acquire] before dispatching a file and [Gate.Release] once the
// file's outcome is recorded.
//
// # Host sampling
//
// [Host] reports host memory usage and volume free space for the metrics
// collector and the disk-space preflight.
package memory
