package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"synothumb/internal/logging"
	"synothumb/internal/mediatypes"
	"synothumb/internal/metrics"
	"synothumb/internal/thumbspec"
	"synothumb/internal/workers"
)

// Generator produces the outputs for one source file. media.Generator
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, src thumbspec.SourceFile) error
}

// Checker decides whether a source file still needs work.
// thumbspec.Checker satisfies it.
type Checker interface {
	IsComplete(src thumbspec.SourceFile) bool
}

// Reporter observes progress of the dispatched files.
type Reporter interface {
	Start(total int)
	Increment()
	Finish()
}

// PreflightFunc verifies that the tools for the pending kinds are present.
// It receives the number of pending files per kind.
type PreflightFunc func(pending map[mediatypes.MediaKind]int) error

// Admission limits how many files are decoded at once. Acquire is called
// before a file is dispatched and Release after its outcome is recorded.
// memory.Gate satisfies it.
type Admission interface {
	Acquire(ctx context.Context) error
	Release()
}

// Config configures a Scheduler.
type Config struct {
	// Workers is the pool size (0 = one per CPU).
	Workers   int
	Checker   Checker
	Preflight PreflightFunc
	Reporter  Reporter
	// Admission throttles dispatch under memory pressure. May be nil.
	Admission Admission
}

// Scheduler runs the pipeline.
type Scheduler struct {
	gen Generator
	cfg Config

	current  atomic.Pointer[Aggregator]
	pending  atomic.Int64
	inFlight atomic.Int64
	total    atomic.Int64
}

// NewScheduler creates a Scheduler.
func NewScheduler(gen Generator, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForCPU(workers.DefaultLimit)
	}
	if cfg.Checker == nil {
		cfg.Checker = thumbspec.NewChecker()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = nopReporter{}
	}
	return &Scheduler{gen: gen, cfg: cfg}
}

// Workers returns the configured pool size.
func (s *Scheduler) Workers() int {
	return s.cfg.Workers
}

// Run processes every supported file under root. The returned error is
// non-nil only for run-level failures: an invalid root, a failed preflight,
// a full disk or cancellation. The Summary is valid in every case.
func (s *Scheduler) Run(ctx context.Context, root string) (Summary, error) {
	agg := NewAggregator(uuid.NewString())
	s.current.Store(agg)
	s.pending.Store(0)
	s.inFlight.Store(0)
	s.total.Store(0)

	metrics.PipelineRunning.Set(1)
	defer func() {
		metrics.PipelineRunning.Set(0)
		metrics.PipelinePending.Set(0)
		metrics.PipelineInFlight.Set(0)
		summary := agg.Summarize()
		metrics.PipelineRunDuration.Set(summary.Duration.Seconds())
		metrics.PipelineLastRunTimestamp.Set(float64(time.Now().Unix()))
	}()

	if err := ValidateRoot(root); err != nil {
		return agg.Summarize(), err
	}

	logging.Info("Searching for media files in %s", root)
	disc, err := Discover(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			agg.MarkInterrupted()
			return agg.Summarize(), ctx.Err()
		}
		var fe *FileError
		if !errors.As(err, &fe) {
			fe = &FileError{Class: ClassDiscovery, Path: root, Err: err}
		}
		return agg.Summarize(), fe
	}
	agg.AddDiscovered(len(disc.Files), disc.Unsupported)
	logging.Info("Found %d media files (%d unsupported files ignored)", len(disc.Files), disc.Unsupported)

	pending := make([]thumbspec.SourceFile, 0, len(disc.Files))
	kinds := make(map[mediatypes.MediaKind]int)
	for _, src := range disc.Files {
		if s.cfg.Checker.IsComplete(src) {
			agg.Record(Outcome{Path: src.Path, Kind: src.Kind, Status: StatusSkipped})
			continue
		}
		pending = append(pending, src)
		kinds[src.Kind]++
	}

	if len(pending) == 0 {
		logging.Info("Nothing to do: all %d output sets are complete", len(disc.Files))
		return agg.Summarize(), nil
	}

	if s.cfg.Preflight != nil {
		if err := s.cfg.Preflight(kinds); err != nil {
			agg.AddNotDispatched(len(pending))
			return agg.Summarize(), &FileError{Class: ClassDependency, Err: err}
		}
	}

	logging.Info("Generating thumbnails for %d files with %d workers (%s)", len(pending), s.cfg.Workers, describeKinds(kinds))
	return s.dispatch(ctx, agg, pending)
}

var errDiskFull = errors.New("disk full")

func (s *Scheduler) dispatch(ctx context.Context, agg *Aggregator, pending []thumbspec.SourceFile) (Summary, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.total.Store(int64(len(pending)))
	s.pending.Store(int64(len(pending)))
	metrics.PipelinePending.Set(float64(len(pending)))
	metrics.PipelineWorkers.Set(float64(s.cfg.Workers))

	s.cfg.Reporter.Start(len(pending))
	defer s.cfg.Reporter.Finish()

	var diskErr atomic.Pointer[FileError]
	jobs := make(chan thumbspec.SourceFile)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logging.Debug("Worker %d started", id)
			for src := range jobs {
				outcome := s.process(runCtx, src)
				agg.Record(outcome)
				if s.cfg.Admission != nil {
					s.cfg.Admission.Release()
				}
				s.cfg.Reporter.Increment()

				if outcome.Status == StatusFailed && ClassOf(outcome.Err) == ClassDiskFull {
					var fe *FileError
					if errors.As(outcome.Err, &fe) && diskErr.CompareAndSwap(nil, fe) {
						logging.Error("Disk full while writing %s, stopping", src.Path)
						cancel(errDiskFull)
					}
				}
			}
			logging.Debug("Worker %d finished", id)
		}(i)
	}

	dispatched := 0
dispatchLoop:
	for _, src := range pending {
		if runCtx.Err() != nil {
			break
		}
		if s.cfg.Admission != nil {
			if err := s.cfg.Admission.Acquire(runCtx); err != nil {
				break
			}
			if runCtx.Err() != nil {
				s.cfg.Admission.Release()
				break
			}
		}
		select {
		case jobs <- src:
			dispatched++
			metrics.PipelinePending.Set(float64(s.pending.Add(-1)))
		case <-runCtx.Done():
			if s.cfg.Admission != nil {
				s.cfg.Admission.Release()
			}
			break dispatchLoop
		}
	}
	close(jobs)
	wg.Wait()

	if n := len(pending) - dispatched; n > 0 {
		agg.AddNotDispatched(n)
		logging.Warn("%d files were not dispatched", n)
	}

	if fe := diskErr.Load(); fe != nil {
		return agg.Summarize(), fe
	}
	if err := ctx.Err(); err != nil {
		agg.MarkInterrupted()
		return agg.Summarize(), err
	}
	return agg.Summarize(), nil
}

// process generates one file. A panic is contained and recorded as an
// unclassified failure.
func (s *Scheduler) process(ctx context.Context, src thumbspec.SourceFile) (o Outcome) {
	start := time.Now()
	o = Outcome{Path: src.Path, Kind: src.Kind}

	metrics.PipelineInFlight.Set(float64(s.inFlight.Add(1)))
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("panic processing %s: %v\n%s", src.Path, r, debug.Stack())
			o.Status = StatusFailed
			o.Err = &FileError{Class: ClassUnclassified, Path: src.Path, Err: fmt.Errorf("panic: %v", r)}
		}
		o.Elapsed = time.Since(start)
		metrics.PipelineInFlight.Set(float64(s.inFlight.Add(-1)))
	}()

	if err := s.gen.Generate(ctx, src); err != nil {
		o.Status = StatusFailed
		o.Err = &FileError{Class: Classify(err), Path: src.Path, Err: err}
		return o
	}
	o.Status = StatusSuccess
	return o
}

// GetStats implements metrics.StatsProvider.
func (s *Scheduler) GetStats() metrics.Stats {
	return metrics.Stats{
		Pending:  int(s.pending.Load()),
		InFlight: int(s.inFlight.Load()),
	}
}

// Snapshot is the live state of the current or last run.
type Snapshot struct {
	Summary
	Running  bool
	Total    int
	Pending  int
	InFlight int
}

// Snapshot returns the live state of the current or last run.
func (s *Scheduler) Snapshot() Snapshot {
	agg := s.current.Load()
	if agg == nil {
		return Snapshot{}
	}
	return Snapshot{
		Summary:  agg.Summarize(),
		Total:    int(s.total.Load()),
		Pending:  int(s.pending.Load()),
		InFlight: int(s.inFlight.Load()),
		Running:  s.pending.Load() > 0 || s.inFlight.Load() > 0,
	}
}

// Failures returns the failed outcomes of the current or last run.
func (s *Scheduler) Failures() []Outcome {
	agg := s.current.Load()
	if agg == nil {
		return nil
	}
	return agg.Failures()
}

func describeKinds(kinds map[mediatypes.MediaKind]int) string {
	keys := make([]mediatypes.MediaKind, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", kinds[k], k)
	}
	return out
}

type nopReporter struct{}

func (nopReporter) Start(int)  {}
func (nopReporter) Increment() {}
func (nopReporter) Finish()    {}
