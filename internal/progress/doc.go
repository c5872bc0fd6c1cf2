// Package progress renders a single-line progress bar for a run.
//
// The bar is redrawn on a ticker with a carriage return, so it only makes
// sense on a terminal. ForFile returns a no-op reporter when the output is
// redirected.
package progress
