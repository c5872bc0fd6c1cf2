package pipeline

import (
	"fmt"
	"sync"
	"time"

	"synothumb/internal/logging"
	"synothumb/internal/mediatypes"
	"synothumb/internal/metrics"
)

// Status is the result of processing one file.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records what happened to one source file.
type Outcome struct {
	Path    string
	Kind    mediatypes.MediaKind
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Summary is the result of a run.
type Summary struct {
	RunID         string
	Success       int
	Skipped       int
	Failed        int
	Discovered    int
	Unsupported   int
	NotDispatched int
	Interrupted   bool
	Duration      time.Duration
}

// Processed returns the number of files with a recorded outcome.
func (s Summary) Processed() int {
	return s.Success + s.Skipped + s.Failed
}

// Aggregator collects outcomes from any goroutine.
type Aggregator struct {
	mu            sync.Mutex
	runID         string
	start         time.Time
	success       int
	skipped       int
	failed        int
	discovered    int
	unsupported   int
	notDispatched int
	interrupted   bool
	failures      []Outcome
}

// NewAggregator creates an empty Aggregator for one run.
func NewAggregator(runID string) *Aggregator {
	return &Aggregator{runID: runID, start: time.Now()}
}

// Record adds one outcome.
func (a *Aggregator) Record(o Outcome) {
	a.mu.Lock()
	switch o.Status {
	case StatusSuccess:
		a.success++
	case StatusSkipped:
		a.skipped++
	case StatusFailed:
		a.failed++
		a.failures = append(a.failures, o)
	}
	a.mu.Unlock()

	kind := o.Kind.String()
	metrics.PipelineOutcomesTotal.WithLabelValues(kind, o.Status.String()).Inc()

	switch o.Status {
	case StatusSuccess:
		logging.Info("Processed %s (%s) in %v", o.Path, kind, o.Elapsed.Round(time.Millisecond))
	case StatusSkipped:
		logging.Debug("Skipped (already complete): %s", o.Path)
	case StatusFailed:
		class := ClassOf(o.Err)
		metrics.ThumbnailFailuresTotal.WithLabelValues(kind, class.String()).Inc()
		// Per-file failures stay in the log file; the console only sees counts.
		logging.Warn("Failed %s [%s]: %v", o.Path, class, o.Err)
	}
}

// AddDiscovered records discovered supported and unsupported files.
func (a *Aggregator) AddDiscovered(supported, unsupported int) {
	a.mu.Lock()
	a.discovered += supported
	a.unsupported += unsupported
	a.mu.Unlock()
}

// AddNotDispatched records files that never reached a worker.
func (a *Aggregator) AddNotDispatched(n int) {
	a.mu.Lock()
	a.notDispatched += n
	a.mu.Unlock()
}

// MarkInterrupted flags the run as cancelled.
func (a *Aggregator) MarkInterrupted() {
	a.mu.Lock()
	a.interrupted = true
	a.mu.Unlock()
}

// Summarize returns the counts so far.
func (a *Aggregator) Summarize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Summary{
		RunID:         a.runID,
		Success:       a.success,
		Skipped:       a.skipped,
		Failed:        a.failed,
		Discovered:    a.discovered,
		Unsupported:   a.unsupported,
		NotDispatched: a.notDispatched,
		Interrupted:   a.interrupted,
		Duration:      time.Since(a.start),
	}
}

// Failures returns a copy of the failed outcomes in arrival order.
func (a *Aggregator) Failures() []Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Outcome, len(a.failures))
	copy(out, a.failures)
	return out
}
