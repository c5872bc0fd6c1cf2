package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"synothumb/internal/thumbspec"
)

// writeFile creates dir/rel with content, making parent directories.
func writeFile(t *testing.T, dir, rel string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// writeJPEG writes a small valid JPEG to dir/rel.
func writeJPEG(t *testing.T, dir, rel string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	path := writeFile(t, dir, rel, nil)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

// fakeGenerator writes placeholder outputs for every descriptor. Behaviour
// for individual files is overridden by base name.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	panics   map[string]bool
	block    map[string]chan struct{}
	started  chan string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:    make(map[string]int),
		failures: make(map[string]error),
		panics:   make(map[string]bool),
		block:    make(map[string]chan struct{}),
	}
}

func (g *fakeGenerator) Generate(ctx context.Context, src thumbspec.SourceFile) error {
	name := filepath.Base(src.Path)

	g.mu.Lock()
	g.calls[src.Path]++
	failErr := g.failures[name]
	doPanic := g.panics[name]
	wait := g.block[name]
	started := g.started
	g.mu.Unlock()

	if started != nil {
		started <- name
	}
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if doPanic {
		panic("decoder exploded")
	}
	if failErr != nil {
		return failErr
	}

	set := thumbspec.Outputs(src)
	if err := os.MkdirAll(set.Dir, 0o755); err != nil {
		return err
	}
	for _, path := range set.Files {
		if err := os.WriteFile(path, []byte("thumb"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGenerator) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

type countingReporter struct {
	mu       sync.Mutex
	total    int
	count    int
	finished bool
}

func (r *countingReporter) Start(total int) {
	r.mu.Lock()
	r.total = total
	r.mu.Unlock()
}

func (r *countingReporter) Increment() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *countingReporter) Finish() {
	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
}

var errBroken = errors.New("broken file")

// countingAdmission admits at most cap(slots) files at a time and counts
// calls so tests can check that every admission is released.
type countingAdmission struct {
	slots    chan struct{}
	mu       sync.Mutex
	acquired int
	released int
}

func newCountingAdmission(n int) *countingAdmission {
	return &countingAdmission{slots: make(chan struct{}, n)}
}

func (a *countingAdmission) Acquire(ctx context.Context) error {
	select {
	case a.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	a.mu.Lock()
	a.acquired++
	a.mu.Unlock()
	return nil
}

func (a *countingAdmission) Release() {
	a.mu.Lock()
	a.released++
	a.mu.Unlock()
	<-a.slots
}

func (a *countingAdmission) counts() (acquired, released int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired, a.released
}
