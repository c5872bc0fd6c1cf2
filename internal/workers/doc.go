/*
Package workers sizes the thumbnail worker pool.

Go sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU still
reports the host's cores. Sizing from GOMAXPROCS keeps a NAS container limited
to two cores from spawning one decoder per host CPU.

Thumbnail generation is CPU-bound (decode, resize, encode) with occasional
waits on ffmpeg and exiftool, so the default is one worker per available CPU:

	n := workers.Resolve(flagValue, workers.DefaultLimit)

An explicit count (from the -j flag or the config file) wins, then the
THUMBNAIL_WORKERS environment variable, then GOMAXPROCS. Explicit counts are
used as given; only the GOMAXPROCS default is capped at the limit.
*/
package workers
