// Package middleware provides HTTP middleware for the status server.
//
// It includes:
//   - Request logging at debug level with control characters stripped
//   - Prometheus request counters and latency histograms
//   - Configurable filtering for health checks
package middleware
