package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	kinds := []string{"image", "raw", "video"}
	statuses := []string{"success", "skipped", "failed"}
	phases := []string{"decode", "resize", "encode", "write"}

	for _, k := range kinds {
		PipelineFilesDiscovered.WithLabelValues(k)
		ThumbnailGenerationDuration.WithLabelValues(k)
		for _, s := range statuses {
			PipelineOutcomesTotal.WithLabelValues(k, s)
		}
		for _, p := range phases {
			ThumbnailGenerationPhaseDuration.WithLabelValues(k, p)
		}
		for _, c := range []string{"decode", "external_tool", "write", "unclassified"} {
			ThumbnailFailuresTotal.WithLabelValues(k, c)
		}
	}

	for _, tag := range []string{"XL", "L", "B", "M", "S", "PREVIEW", "FILM"} {
		ThumbnailOutputsWritten.WithLabelValues(tag)
	}

	for _, tool := range []string{"ffmpeg", "ffprobe", "exiftool"} {
		ExternalToolInvocations.WithLabelValues(tool, "success")
		ExternalToolInvocations.WithLabelValues(tool, "error")
		ExternalToolDuration.WithLabelValues(tool)
	}

	for _, op := range []string{"stat", "open", "write", "mkdir"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
