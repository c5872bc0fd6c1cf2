package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	PipelineFilesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_pipeline_files_discovered_total",
			Help: "Total number of supported media files discovered",
		},
		[]string{"kind"},
	)

	PipelineUnsupportedFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synothumb_pipeline_unsupported_files_total",
			Help: "Total number of files skipped because their extension is not supported",
		},
	)

	PipelineOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_pipeline_outcomes_total",
			Help: "Total number of per-file outcomes",
		},
		[]string{"kind", "status"}, // status: "success", "skipped", "failed"
	)

	PipelineWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_pipeline_workers",
			Help: "Number of workers in the generation pool",
		},
	)

	PipelineInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_pipeline_in_flight",
			Help: "Number of files currently being processed",
		},
	)

	PipelinePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_pipeline_pending",
			Help: "Number of files waiting for a worker",
		},
	)

	PipelineRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_pipeline_running",
			Help: "Whether a run is in progress (1 = running, 0 = idle)",
		},
	)

	PipelineRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_pipeline_last_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		},
	)

	PipelineLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_pipeline_last_run_timestamp",
			Help: "Unix timestamp of the last run completion",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synothumb_thumbnail_generation_duration_seconds",
			Help:    "Per-file thumbnail generation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	ThumbnailGenerationPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synothumb_thumbnail_generation_phase_duration_seconds",
			Help:    "Thumbnail generation duration by phase in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind", "phase"}, // phase: "decode", "resize", "encode", "write"
	)

	ThumbnailOutputsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_thumbnail_outputs_written_total",
			Help: "Total number of thumbnail output files written",
		},
		[]string{"tag"},
	)

	ThumbnailFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_thumbnail_failures_total",
			Help: "Total number of failed files by error class",
		},
		[]string{"kind", "class"},
	)
)

// External tool metrics
var (
	ExternalToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_external_tool_invocations_total",
			Help: "Total number of external tool invocations",
		},
		[]string{"tool", "status"},
	)

	ExternalToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synothumb_external_tool_duration_seconds",
			Help:    "External tool invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"tool"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synothumb_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_filesystem_retry_attempts_total",
			Help: "Total number of retried filesystem operations after a stale file handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors encountered",
		},
		[]string{"operation"},
	)
)

// Memory and host metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryThrottled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_memory_throttled",
			Help: "Whether decode admission is limited to one file for heap pressure (1 = throttled)",
		},
	)

	MemoryThrottleEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synothumb_memory_throttle_events_total",
			Help: "Total number of times decode admission was throttled and a GC forced",
		},
	)

	HostMemoryUsedRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_host_memory_used_ratio",
			Help: "Fraction of host memory in use",
		},
	)

	HostDiskFreeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synothumb_host_disk_free_bytes",
			Help: "Free bytes on the volume holding the media directory",
		},
	)
)

// Status server metrics
var (
	StatusRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synothumb_status_requests_total",
			Help: "Total number of requests served by the status server",
		},
		[]string{"method", "path", "status"},
	)

	StatusRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synothumb_status_request_duration_seconds",
			Help:    "Status server request duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"method", "path"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "synothumb_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
