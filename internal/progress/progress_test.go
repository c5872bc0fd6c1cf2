package progress

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestRender(t *testing.T) {
	b := New(&bytes.Buffer{}, 60, time.Second)

	tests := []struct {
		name     string
		count    int
		total    int
		elapsed  time.Duration
		contains []string
	}{
		{"empty", 0, 10, 0, []string{"[", " 0/10 (0%)"}},
		{"half", 5, 10, 5 * time.Second, []string{" 5/10 (50%)", "1.0/s", "ETA 5s"}},
		{"complete", 10, 10, 10 * time.Second, []string{" 10/10 (100%)"}},
		{"zero total", 0, 0, 0, []string{" 0/0 (100%)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := b.render(tt.count, tt.total, tt.elapsed)
			for _, want := range tt.contains {
				if !strings.Contains(line, want) {
					t.Errorf("render() = %q, missing %q", line, want)
				}
			}
			if len(line) > 60 {
				t.Errorf("render() is %d columns, wider than 60", len(line))
			}
		})
	}

	if line := b.render(10, 10, time.Second); strings.Contains(line, "ETA") {
		t.Errorf("finished bar should not show an ETA: %q", line)
	}
	full := b.render(10, 10, time.Second)
	if strings.Contains(full[:strings.Index(full, "]")], " ") {
		t.Errorf("finished bar should be full: %q", full)
	}
}

func TestBarLifecycle(t *testing.T) {
	out := &syncBuffer{}
	b := New(out, 60, 10*time.Millisecond)

	b.Start(3)
	b.Increment()
	b.Increment()
	b.Increment()
	b.Increment() // clamped to total
	time.Sleep(30 * time.Millisecond)
	b.Finish()

	got := out.String()
	if !strings.HasPrefix(got, "\r") {
		t.Errorf("output should redraw with a carriage return: %q", got)
	}
	if !strings.Contains(got, "3/3 (100%)") {
		t.Errorf("final line missing: %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("Finish() should end the line: %q", got)
	}

	// Finish is idempotent.
	b.Finish()
}

func TestForFileNotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "progress")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, ok := ForFile(f).(Nop); !ok {
		t.Error("ForFile() on a regular file should return Nop")
	}
}
