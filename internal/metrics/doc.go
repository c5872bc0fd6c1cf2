// Package metrics provides Prometheus instrumentation for synothumb.
//
// All metrics are prefixed with "synothumb_". They are registered with the
// default registry at package init and exposed by the optional status server
// (see internal/status) when --metrics-addr is set.
//
// # Metric Categories
//
// ## Pipeline Metrics
//
//   - PipelineFilesDiscovered: Counter of supported files found by kind
//   - PipelineUnsupportedFiles: Counter of files skipped as unsupported
//   - PipelineOutcomesTotal: Counter of per-file outcomes by kind and status
//   - PipelineWorkers: Gauge of the worker pool size
//   - PipelineInFlight: Gauge of files currently being generated
//   - PipelinePending: Gauge of files waiting for a worker
//   - PipelineRunDuration / PipelineLastRunTimestamp: last run timing
//
// ## Thumbnail Metrics
//
//   - ThumbnailGenerationDuration: Histogram of per-file generation time by kind
//   - ThumbnailGenerationPhaseDuration: Histogram by kind and phase (decode, resize, encode, write)
//   - ThumbnailOutputsWritten: Counter of output files written by tag
//   - ThumbnailFailuresTotal: Counter of failures by kind and error class
//
// ## External Tool Metrics
//
//   - ExternalToolInvocations: Counter by tool (ffmpeg, ffprobe, exiftool) and status
//   - ExternalToolDuration: Histogram by tool
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer implementation returned by
// NewFilesystemObserver:
//   - FilesystemOperationDuration / FilesystemOperationErrors
//   - FilesystemRetryAttempts / Success / Failures / StaleErrors
//
// ## Memory and Host Metrics
//
//   - MemoryUsageRatio, MemoryThrottled, MemoryThrottleEvents (memory.Gate)
//   - HostMemoryUsedRatio, HostDiskFreeBytes (Collector)
package metrics
