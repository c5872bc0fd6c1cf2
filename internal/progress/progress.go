package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	defaultInterval = 500 * time.Millisecond
	defaultWidth    = 80
	minBarWidth     = 10
)

// Reporter receives the number of dispatched files and one increment per
// finished file.
type Reporter interface {
	Start(total int)
	Increment()
	Finish()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)  {}
func (Nop) Increment() {}
func (Nop) Finish()    {}

// ForFile returns a Bar drawing on f when f is a terminal, otherwise Nop.
func ForFile(f *os.File) Reporter {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return Nop{}
	}
	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	return New(f, width, defaultInterval)
}

// Bar is a ticker-driven progress line.
type Bar struct {
	out      io.Writer
	width    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	total   int
	count   int
	started time.Time
	done    chan struct{}
	stopped chan struct{}
}

// New creates a Bar writing to out. width is the terminal width in columns.
func New(out io.Writer, width int, interval time.Duration) *Bar {
	if width <= 0 {
		width = defaultWidth
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Bar{out: out, width: width, interval: interval, now: time.Now}
}

// Start begins drawing for total files.
func (b *Bar) Start(total int) {
	b.mu.Lock()
	if b.done != nil {
		b.mu.Unlock()
		return
	}
	b.total = total
	b.count = 0
	b.started = b.now()
	b.done = make(chan struct{})
	b.stopped = make(chan struct{})
	done, stopped := b.done, b.stopped
	b.mu.Unlock()

	go b.loop(done, stopped)
}

func (b *Bar) loop(done, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.draw()
		}
	}
}

// Increment records one finished file. It never decreases the count.
func (b *Bar) Increment() {
	b.mu.Lock()
	if b.count < b.total {
		b.count++
	}
	b.mu.Unlock()
}

// Finish draws the final state and ends the line.
func (b *Bar) Finish() {
	b.mu.Lock()
	done, stopped := b.done, b.stopped
	b.done = nil
	b.mu.Unlock()
	if done == nil {
		return
	}

	close(done)
	<-stopped
	b.draw()
	fmt.Fprintln(b.out)
}

func (b *Bar) draw() {
	b.mu.Lock()
	line := b.render(b.count, b.total, b.now().Sub(b.started))
	b.mu.Unlock()
	fmt.Fprint(b.out, "\r"+line)
}

// render formats one progress line padded to the bar width.
func (b *Bar) render(count, total int, elapsed time.Duration) string {
	pct := 100.0
	if total > 0 {
		pct = float64(count) * 100 / float64(total)
	}

	stats := fmt.Sprintf(" %d/%d (%.0f%%)", count, total, pct)
	if count > 0 && elapsed > 0 {
		rate := float64(count) / elapsed.Seconds()
		stats += fmt.Sprintf(" %.1f/s", rate)
		if count < total {
			eta := time.Duration(float64(total-count) / rate * float64(time.Second))
			stats += " ETA " + eta.Round(time.Second).String()
		}
	}

	barWidth := b.width - len(stats) - 3
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	filled := barWidth
	if total > 0 {
		filled = barWidth * count / total
	}

	line := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]" + stats
	if pad := b.width - 1 - len(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	return line
}
