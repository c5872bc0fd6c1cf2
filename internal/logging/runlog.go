package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunLog is a timestamped log file that receives all output for one run.
type RunLog struct {
	Path string
	file *os.File
}

// RunLogName returns the file name used for a run started at t.
func RunLogName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.log", prefix, t.Format("20060102_150405"))
}

// OpenRunLog creates dir if needed, opens a new timestamped log file in it and
// redirects logging there. ERROR lines are mirrored to stderr until Close.
func OpenRunLog(dir, prefix string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, RunLogName(prefix, time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	SetOutput(f)
	MirrorErrors(os.Stderr)

	return &RunLog{Path: path, file: f}, nil
}

// Close restores stderr output and closes the file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	MirrorErrors(nil)
	SetOutput(os.Stderr)
	return r.file.Close()
}
