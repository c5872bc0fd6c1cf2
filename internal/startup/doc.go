// Package startup handles configuration loading, preflight checks and the
// console/log banners of a run.
//
// # Configuration
//
// Settings come from, in decreasing precedence: command-line flags, the
// process environment, a dotenv file ([LoadFiles]), a YAML file
// ([LoadFiles]) and built-in defaults. The file loaders only fill variables
// that are not already set, so the environment always wins over files.
//
//   - THUMBNAIL_WORKERS: worker pool size (default: one per CPU, capped at 32)
//   - THUMBNAIL_BACKEND: imaging or vips (default: imaging)
//   - LOG_DIR: directory for run logs (default: logs)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - METRICS_ADDR: listen address of the status server (default: off)
//   - FFMPEG_PATH, FFPROBE_PATH, EXIFTOOL_PATH: tool binaries (default: PATH lookup)
//   - MIN_FREE_SPACE: bytes that must be free on the media volume (default: 32 MiB)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Preflight
//
// [Preflight] returns the pipeline's preflight hook. It only requires the
// external tools needed by the kinds that actually have pending work.
package startup
