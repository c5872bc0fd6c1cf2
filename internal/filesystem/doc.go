/*
Package filesystem provides the filesystem primitives the thumbnail pipeline
relies on: resilient stat/open with retry for NFS stale file handles, atomic
output writes and disk-full detection.

# Retry Behavior

StatWithRetry and OpenWithRetry wrap os.Stat and os.Open. Only ESTALE
(stale file handle) errors trigger retries, with exponential backoff:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors, including "not exist", are returned immediately.

# Atomic Writes

WriteFileAtomic writes to a temporary file in the destination directory,
syncs it and renames it into place. A reader (or a later run's existence
check) therefore never observes a truncated output under its final name: it
either does not exist or holds the full content.

	err := filesystem.WriteFileAtomic(path, data, 0o644)
	if errors.Is(err, filesystem.ErrNoSpace) {
	    // the device is full; every following write will fail the same way
	}

# Metrics

The package does not import the metrics package. Call SetObserver once at
startup with metrics.NewFilesystemObserver() to record retry counters.
*/
package filesystem
