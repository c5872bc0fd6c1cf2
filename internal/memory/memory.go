package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"synothumb/internal/logging"
	"synothumb/internal/metrics"
)

// Config tunes a Gate.
type Config struct {
	// LimitBytes is the heap budget. 0 falls back to GOMEMLIMIT; with
	// neither the gate never throttles.
	LimitBytes int64

	// ThrottleRatio is the heap fraction at which admission drops to one
	// file at a time.
	ThrottleRatio float64

	// ResumeRatio is the heap fraction below which every worker may decode
	// again. Must be below ThrottleRatio.
	ResumeRatio float64

	// SampleInterval is how often the heap is sampled.
	SampleInterval time.Duration
}

// DefaultConfig returns the settings used by the generate command.
func DefaultConfig() Config {
	return Config{
		ThrottleRatio:  0.85,
		ResumeRatio:    0.7,
		SampleInterval: time.Second,
	}
}

// Gate admits files into decoding. While the heap is above the throttle
// ratio a file is admitted only when no other file is being decoded, so the
// run keeps moving while the buffers of finished files are collected.
type Gate struct {
	cfg      Config
	limit    int64
	readHeap func() uint64

	mu        sync.Mutex
	heap      uint64
	throttled bool
	active    int
	wake      chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewGate creates a Gate. Call Start to begin sampling.
func NewGate(cfg Config) *Gate {
	limit := cfg.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
			limit = l
		}
	}

	if limit > 0 {
		logging.Info("Decode gate: heap limit %s, single-file admission above %.0f%%",
			FormatBytes(limit), cfg.ThrottleRatio*100)
	} else {
		logging.Warn("Decode gate: no heap limit configured, admission is never throttled")
	}

	return &Gate{
		cfg:      cfg,
		limit:    limit,
		readHeap: heapAlloc,
		wake:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start samples the heap until Stop. Without a limit it does nothing.
func (g *Gate) Start() {
	if g.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.cfg.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.sample()
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and admits every waiting and future caller.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Gate) sample() {
	heap := g.readHeap()
	usage := float64(heap) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.heap = heap

	switch {
	case !g.throttled && usage >= g.cfg.ThrottleRatio:
		g.throttled = true
		metrics.MemoryThrottled.Set(1)
		metrics.MemoryThrottleEvents.Inc()
		logging.Warn("Heap at %.1f%% of limit with %d files decoding, admitting one file at a time",
			usage*100, g.active)
		go runtime.GC()
	case g.throttled && usage < g.cfg.ResumeRatio:
		g.throttled = false
		metrics.MemoryThrottled.Set(0)
		logging.Info("Heap at %.1f%% of limit, resuming full concurrency", usage*100)
		g.broadcast()
	}
}

// Acquire blocks until a file may be decoded. Every successful Acquire must
// be paired with a Release. It returns the context error if ctx ends first.
func (g *Gate) Acquire(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.throttled || g.active == 0 || g.isStopped() {
			g.active++
			g.mu.Unlock()
			return nil
		}
		wake := g.wake
		g.mu.Unlock()

		select {
		case <-wake:
		case <-g.stop:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Release marks one admitted file as finished.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active > 0 {
		g.active--
	}
	g.broadcast()
}

// broadcast wakes every waiter. g.mu must be held.
func (g *Gate) broadcast() {
	close(g.wake)
	g.wake = make(chan struct{})
}

func (g *Gate) isStopped() bool {
	select {
	case <-g.stop:
		return true
	default:
		return false
	}
}

// Limit returns the heap budget, 0 when throttling is disabled.
func (g *Gate) Limit() int64 {
	return g.limit
}

// Throttled reports whether admission is currently single-file.
func (g *Gate) Throttled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.throttled
}

// Active returns the number of admitted files not yet released.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Usage returns the last sampled heap as a fraction of the limit.
func (g *Gate) Usage() float64 {
	if g.limit == 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return float64(g.heap) / float64(g.limit)
}
