package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
	"synothumb/internal/mediatypes"
	"synothumb/internal/metrics"
	"synothumb/internal/rawdecode"
	"synothumb/internal/thumbspec"
	"synothumb/internal/transcoder"
)

var (
	// ErrDecode wraps failures to turn a source file into pixels.
	ErrDecode = errors.New("decode failed")
	// ErrWrite wraps failures to create the output directory or an output.
	ErrWrite = errors.New("write failed")
	// ErrUnsupported is returned for files of an unsupported kind.
	ErrUnsupported = errors.New("unsupported media kind")
)

// RawDecoder turns a RAW file into an image. rawdecode.Decoder satisfies it.
type RawDecoder interface {
	Decode(ctx context.Context, path string) (*rawdecode.Raw, error)
}

// VideoTool probes videos, grabs frames and writes preview clips.
// transcoder.Tool satisfies it.
type VideoTool interface {
	Probe(ctx context.Context, path string) (*transcoder.VideoInfo, error)
	ExtractFrame(ctx context.Context, path string, offset time.Duration) (image.Image, error)
	WriteFilmClip(ctx context.Context, src, dst string) error
}

// Generator writes output sets.
type Generator struct {
	backend ImageBackend
	raw     RawDecoder
	video   VideoTool
}

// NewGenerator creates a Generator. raw and video may be nil when no files
// of that kind will be processed.
func NewGenerator(backend ImageBackend, raw RawDecoder, video VideoTool) *Generator {
	return &Generator{backend: backend, raw: raw, video: video}
}

// Generate writes every output required for src. On failure no output from
// this attempt is left behind.
func (g *Generator) Generate(ctx context.Context, src thumbspec.SourceFile) (err error) {
	start := time.Now()
	defer func() {
		if err == nil {
			metrics.ThumbnailGenerationDuration.WithLabelValues(src.Kind.String()).Observe(time.Since(start).Seconds())
		}
	}()

	w := &outputWriter{src: src}
	defer func() {
		if err != nil {
			w.rollback()
		}
	}()

	switch src.Kind {
	case mediatypes.KindImage:
		return g.generateImage(ctx, w)
	case mediatypes.KindRaw:
		return g.generateRaw(ctx, w)
	case mediatypes.KindVideo:
		return g.generateVideo(ctx, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, src.Path)
	}
}

func (g *Generator) generateImage(ctx context.Context, w *outputWriter) error {
	largest := thumbspec.Stills(w.src.Kind)[0].MaxDimension

	phase := time.Now()
	img, err := g.backend.Load(ctx, w.src.Path, largest)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, w.src.Path, err)
	}
	observePhase(w.src.Kind, "decode", phase)

	return w.writeStills(ctx, img)
}

func (g *Generator) generateRaw(ctx context.Context, w *outputWriter) error {
	if g.raw == nil {
		return fmt.Errorf("%w: no RAW decoder configured for %s", ErrDecode, w.src.Path)
	}

	phase := time.Now()
	raw, err := g.raw.Decode(ctx, w.src.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", ErrDecode, w.src.Path, err)
	}
	img := ApplyOrientation(raw.Image, raw.Orientation)
	observePhase(w.src.Kind, "decode", phase)

	return w.writeStills(ctx, img)
}

func (g *Generator) generateVideo(ctx context.Context, w *outputWriter) error {
	if g.video == nil {
		return fmt.Errorf("%w: no video tool configured for %s", transcoder.ErrToolMissing, w.src.Path)
	}

	phase := time.Now()
	info, err := g.video.Probe(ctx, w.src.Path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", w.src.Path, err)
	}

	frame, err := g.video.ExtractFrame(ctx, w.src.Path, transcoder.FrameTime(info.Duration))
	if err != nil {
		return fmt.Errorf("extract frame from %s: %w", w.src.Path, err)
	}
	frame = RotateClockwise(frame, info.Rotation)
	observePhase(w.src.Kind, "decode", phase)

	if err := w.writeStills(ctx, frame); err != nil {
		return err
	}

	film, ok := thumbspec.Film(w.src.Kind)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	phase = time.Now()
	dst := thumbspec.Path(w.src, film)
	if err := g.video.WriteFilmClip(ctx, w.src.Path, dst); err != nil {
		if filesystem.IsNoSpace(err) {
			return fmt.Errorf("%w: %s: %w", ErrWrite, dst, err)
		}
		return fmt.Errorf("film clip for %s: %w", w.src.Path, err)
	}
	w.written = append(w.written, dst)
	metrics.ThumbnailOutputsWritten.WithLabelValues(string(film.Tag)).Inc()
	observePhase(w.src.Kind, "write", phase)
	return nil
}

// outputWriter tracks what one attempt has written so it can be undone.
type outputWriter struct {
	src     thumbspec.SourceFile
	written []string
}

// writeStills renders every still descriptor, each from the previous larger
// one.
func (w *outputWriter) writeStills(ctx context.Context, img image.Image) error {
	dir := thumbspec.OutputDir(w.src)
	if err := filesystem.EnsureDir(dir); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, dir, err)
	}

	current := img
	for _, d := range thumbspec.Stills(w.src.Kind) {
		if err := ctx.Err(); err != nil {
			return err
		}

		phase := time.Now()
		out := Render(current, d)
		if !d.Pad {
			current = out
		}
		observePhase(w.src.Kind, "resize", phase)

		phase = time.Now()
		data, err := EncodeJPEG(out, d.Quality)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrWrite, d.Tag, err)
		}
		observePhase(w.src.Kind, "encode", phase)

		phase = time.Now()
		path := thumbspec.Path(w.src, d)
		if err := filesystem.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
		}
		w.written = append(w.written, path)
		metrics.ThumbnailOutputsWritten.WithLabelValues(string(d.Tag)).Inc()
		observePhase(w.src.Kind, "write", phase)
	}
	return nil
}

func (w *outputWriter) rollback() {
	for _, path := range w.written {
		filesystem.RemoveQuietly(path)
	}
	if len(w.written) > 0 {
		logging.Debug("Removed %d outputs of failed attempt for %s", len(w.written), w.src.Path)
	}
	w.written = nil
}

func observePhase(kind mediatypes.MediaKind, phase string, start time.Time) {
	metrics.ThumbnailGenerationPhaseDuration.WithLabelValues(kind.String(), phase).Observe(time.Since(start).Seconds())
}
