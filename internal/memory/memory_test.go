package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(limit int64) Config {
	return Config{
		LimitBytes:     limit,
		ThrottleRatio:  0.85,
		ResumeRatio:    0.7,
		SampleInterval: 10 * time.Millisecond,
	}
}

// fakeHeap lets tests drive the gate's heap reading.
type fakeHeap struct {
	v atomic.Uint64
}

func (f *fakeHeap) read() uint64 { return f.v.Load() }

func newTestGate(limit int64, heap uint64) (*Gate, *fakeHeap) {
	g := NewGate(testConfig(limit))
	h := &fakeHeap{}
	h.v.Store(heap)
	g.readHeap = h.read
	return g, h
}

func acquireAsync(g *Gate, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- g.Acquire(ctx) }()
	return done
}

func TestNewGateExplicitLimit(t *testing.T) {
	g := NewGate(testConfig(100 << 20))
	if g.Limit() != 100<<20 {
		t.Errorf("Limit() = %d, want %d", g.Limit(), 100<<20)
	}
	if g.Throttled() {
		t.Error("new gate should not be throttled")
	}
}

func TestGateUnthrottledAdmitsAll(t *testing.T) {
	g, _ := newTestGate(1000, 100)
	g.sample()

	for i := 0; i < 8; i++ {
		if err := g.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() #%d = %v", i, err)
		}
	}
	if g.Active() != 8 {
		t.Errorf("Active() = %d, want 8", g.Active())
	}
	for i := 0; i < 8; i++ {
		g.Release()
	}
	if g.Active() != 0 {
		t.Errorf("Active() after release = %d, want 0", g.Active())
	}
}

func TestGateThrottleHysteresis(t *testing.T) {
	g, heap := newTestGate(1000, 500)

	g.sample()
	if g.Throttled() {
		t.Fatal("throttled at 50% usage")
	}
	if got := g.Usage(); got != 0.5 {
		t.Errorf("Usage() = %v, want 0.5", got)
	}

	heap.v.Store(900)
	g.sample()
	if !g.Throttled() {
		t.Fatal("not throttled at 90% usage")
	}

	// Between the ratios the state is kept
	heap.v.Store(800)
	g.sample()
	if !g.Throttled() {
		t.Fatal("resumed above the resume ratio")
	}

	heap.v.Store(100)
	g.sample()
	if g.Throttled() {
		t.Fatal("still throttled at 10% usage")
	}
}

func TestGateThrottledAdmitsOneAtATime(t *testing.T) {
	g, _ := newTestGate(1000, 950)
	g.sample()

	// With nothing decoding the first file always gets through
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() = %v", err)
	}

	second := acquireAsync(g, context.Background())
	select {
	case <-second:
		t.Fatal("second Acquire returned while another file is decoding")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	select {
	case err := <-second:
		if err != nil {
			t.Errorf("second Acquire() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Acquire not admitted after Release")
	}
	if g.Active() != 1 {
		t.Errorf("Active() = %d, want 1", g.Active())
	}
}

func TestGateResumeWakesWaiters(t *testing.T) {
	g, heap := newTestGate(1000, 950)
	g.sample()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	waiting := acquireAsync(g, context.Background())
	select {
	case <-waiting:
		t.Fatal("Acquire returned while throttled")
	case <-time.After(20 * time.Millisecond):
	}

	heap.v.Store(100)
	g.sample()

	select {
	case err := <-waiting:
		if err != nil {
			t.Errorf("Acquire() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after the heap recovered")
	}
	if g.Active() != 2 {
		t.Errorf("Active() = %d, want 2", g.Active())
	}
}

func TestGateAcquireContext(t *testing.T) {
	g, _ := newTestGate(1000, 950)
	g.sample()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() = %v, want DeadlineExceeded", err)
	}
	if g.Active() != 1 {
		t.Errorf("Active() = %d, want 1 after a cancelled Acquire", g.Active())
	}
}

func TestGateStopAdmitsWaiters(t *testing.T) {
	g, _ := newTestGate(1000, 950)
	g.sample()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	waiting := acquireAsync(g, context.Background())
	g.Stop()
	g.Stop() // idempotent

	select {
	case err := <-waiting:
		if err != nil {
			t.Errorf("Acquire() after Stop = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not release the waiter")
	}
}

func TestGateWithoutLimit(t *testing.T) {
	g := NewGate(testConfig(0))
	if g.Limit() != 0 {
		t.Skip("GOMEMLIMIT is set in this environment")
	}
	if err := g.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() = %v", err)
	}
	if g.Usage() != 0 {
		t.Error("Usage() should be 0 without a limit")
	}
	g.Start() // no-op
	g.Stop()
}

func TestReleaseWithoutAcquire(t *testing.T) {
	g := NewGate(testConfig(1000))
	g.Release()
	if g.Active() != 0 {
		t.Errorf("Active() = %d, want 0", g.Active())
	}
}

func TestGateStartStop(t *testing.T) {
	g := NewGate(testConfig(1 << 40))
	g.Start()
	time.Sleep(30 * time.Millisecond)
	g.Stop()

	if g.Usage() <= 0 {
		t.Error("expected the loop to sample usage at least once")
	}
}
