// Package status serves live run state over HTTP while a run is in
// progress.
//
// Routes:
//
//	GET /metrics   Prometheus exposition
//	GET /healthz   liveness, always 200 while the process is up
//	GET /progress  counts of the current run as JSON
//	GET /failures  failed files of the current run as JSON
//
// The server is optional and only started when a listen address is
// configured.
package status
