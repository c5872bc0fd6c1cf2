// Package logging provides a simple leveled logging interface for synothumb.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
//
// By default messages go to the standard logger (stderr). A generation run
// calls OpenRunLog to redirect everything to a timestamped file; ERROR and
// FATAL lines are then mirrored to stderr so failures stay visible next to
// the progress bar.
package logging
