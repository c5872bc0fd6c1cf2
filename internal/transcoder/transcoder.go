package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
	"synothumb/internal/metrics"
	"synothumb/internal/thumbspec"

	// PNG is the pipe format for extracted frames.
	_ "image/png"
)

var (
	// ErrToolMissing means the ffmpeg or ffprobe binary could not be found.
	ErrToolMissing = errors.New("external tool not available")
	// ErrToolFailed means the tool ran but exited unsuccessfully or produced
	// unusable output.
	ErrToolFailed = errors.New("external tool failed")
)

// FrameOffset is where a representative frame is taken from.
const FrameOffset = 1 * time.Second

// Config holds the binary locations.
type Config struct {
	FFmpegPath  string
	FFprobePath string
}

// DefaultConfig resolves both tools from PATH.
func DefaultConfig() Config {
	return Config{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// FrameGrabber extracts one frame from a video at the given offset, without
// applying rotation metadata.
type FrameGrabber interface {
	GrabFrame(ctx context.Context, path string, offset time.Duration) (image.Image, error)
}

// Tool runs ffmpeg and ffprobe.
type Tool struct {
	ffmpeg  string
	ffprobe string
	grabber FrameGrabber

	processes map[uint64]*exec.Cmd
	processMu sync.Mutex
	nextID    atomic.Uint64
}

// VideoInfo contains information about a video file.
type VideoInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
	// Rotation is the clockwise rotation in degrees (0, 90, 180 or 270)
	// needed to display decoded frames upright.
	Rotation int
}

// New creates a new Tool. Empty paths fall back to PATH lookup.
func New(cfg Config) *Tool {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	t := &Tool{
		ffmpeg:    cfg.FFmpegPath,
		ffprobe:   cfg.FFprobePath,
		processes: make(map[uint64]*exec.Cmd),
	}
	t.grabber = defaultGrabber(t)
	return t
}

// SetFrameGrabber replaces the frame extraction backend.
func (t *Tool) SetFrameGrabber(g FrameGrabber) {
	t.grabber = g
}

// CheckAvailable verifies that both ffmpeg and ffprobe can be executed.
func (t *Tool) CheckAvailable() error {
	if err := t.CheckFFmpeg(); err != nil {
		return err
	}
	if _, err := exec.LookPath(t.ffprobe); err != nil {
		return fmt.Errorf("%w: ffprobe (%s): %v", ErrToolMissing, t.ffprobe, err)
	}
	return nil
}

// CheckFFmpeg verifies that ffmpeg can be executed.
func (t *Tool) CheckFFmpeg() error {
	if _, err := exec.LookPath(t.ffmpeg); err != nil {
		return fmt.Errorf("%w: ffmpeg (%s): %v", ErrToolMissing, t.ffmpeg, err)
	}
	return nil
}

// Probe runs ffprobe and returns duration, size and rotation of the first
// video stream.
func (t *Tool) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	out, err := t.run(ctx, "ffprobe", t.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}
	info, err := parseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe output for %s: %v", ErrToolFailed, path, err)
	}
	return info, nil
}

// FrameTime returns the offset a representative frame is taken from: one
// second in, or the first frame for shorter clips.
func FrameTime(duration time.Duration) time.Duration {
	if duration > 0 && duration <= FrameOffset {
		return 0
	}
	return FrameOffset
}

// ExtractFrame grabs one frame at offset using the configured grabber.
func (t *Tool) ExtractFrame(ctx context.Context, path string, offset time.Duration) (image.Image, error) {
	return t.grabber.GrabFrame(ctx, path, offset)
}

// ffmpegGrabber pipes a single PNG frame out of ffmpeg.
type ffmpegGrabber struct {
	tool *Tool
}

func (g ffmpegGrabber) GrabFrame(ctx context.Context, path string, offset time.Duration) (image.Image, error) {
	out, err := g.tool.run(ctx, "ffmpeg", g.tool.ffmpeg, frameArgs(path, offset)...)
	if err != nil {
		return nil, err
	}
	return decodePipe(out, path)
}

func frameArgs(path string, offset time.Duration) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-noautorotate",
		"-ss", formatOffset(offset),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// DecodeImage decodes the first frame of any file ffmpeg understands. It is
// the fallback for still formats the Go decoders reject.
func (t *Tool) DecodeImage(ctx context.Context, path string) (image.Image, error) {
	logging.Debug("Using ffmpeg to decode image: %s", path)
	out, err := t.run(ctx, "ffmpeg", t.ffmpeg,
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return nil, err
	}
	return decodePipe(out, path)
}

func decodePipe(out []byte, path string) (image.Image, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no output for %s", ErrToolFailed, path)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: decode ffmpeg output for %s: %v", ErrToolFailed, path, err)
	}
	return img, nil
}

// WriteFilmClip transcodes the preview clip for path into dst. The clip is
// written to a temporary sibling and renamed into place, so dst is either
// absent or complete.
func (t *Tool) WriteFilmClip(ctx context.Context, path, dst string) error {
	tmp := filesystem.TempPathFor(dst)
	if _, err := t.run(ctx, "ffmpeg", t.ffmpeg, filmArgs(path, tmp)...); err != nil {
		filesystem.RemoveQuietly(tmp)
		return err
	}
	return filesystem.CommitTemp(tmp, dst)
}

func filmArgs(src, dst string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-ar", fmt.Sprint(thumbspec.FilmSampleRate),
		"-r", fmt.Sprint(thumbspec.FilmFrameRate),
		"-ac", fmt.Sprint(thumbspec.FilmChannels),
		"-f", "flv",
		"-qscale", "5",
		"-s", fmt.Sprintf("%dx%d", thumbspec.FilmWidth, thumbspec.FilmHeight),
		dst,
	}
}

// run executes one tool invocation and returns its stdout.
func (t *Tool) run(ctx context.Context, name, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	id := t.nextID.Add(1)
	t.processMu.Lock()
	t.processes[id] = cmd
	t.processMu.Unlock()

	defer func() {
		t.processMu.Lock()
		delete(t.processes, id)
		t.processMu.Unlock()
	}()

	start := time.Now()
	err := cmd.Run()
	metrics.ExternalToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ExternalToolInvocations.WithLabelValues(name, "error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s (%s): %v", ErrToolMissing, name, bin, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "No space left on device") {
			return nil, fmt.Errorf("%w: %w: %s: %s", ErrToolFailed, filesystem.ErrNoSpace, name, msg)
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrToolFailed, name, err, msg)
	}

	metrics.ExternalToolInvocations.WithLabelValues(name, "success").Inc()
	return stdout.Bytes(), nil
}

// Cleanup stops all running tool processes.
func (t *Tool) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for _, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing %s process (pid %d)", cmd.Path, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill %s process: %v", cmd.Path, err)
			}
		}
	}
}

// Running returns the number of tool processes currently executing.
func (t *Tool) Running() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}
