package rawdecode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"

	"synothumb/internal/logging"
	"synothumb/internal/metrics"
)

var (
	// ErrNoPreview means the file carries no decodable embedded preview.
	ErrNoPreview = errors.New("no embedded preview")
	// ErrExiftoolMissing means the exiftool binary could not be started.
	ErrExiftoolMissing = errors.New("exiftool not available")
)

// Raw is a decoded RAW file.
type Raw struct {
	Image image.Image
	// Orientation is the EXIF orientation (1-8) that still has to be
	// applied to Image. 1 means upright.
	Orientation int
	// Source names the preview tag the image came from, or "ffmpeg".
	Source string
}

// FallbackDecoder decodes files without an embedded preview.
// transcoder.Tool satisfies it.
type FallbackDecoder interface {
	DecodeImage(ctx context.Context, path string) (image.Image, error)
}

// Config configures the exiftool pool.
type Config struct {
	ExiftoolPath string
	// PoolSize bounds the number of concurrent exiftool processes.
	PoolSize int
}

// Decoder extracts embedded previews with a pool of long-running exiftool
// processes. It is safe for concurrent use.
type Decoder struct {
	cfg      Config
	fallback FallbackDecoder

	pool    chan *exiftool.Exiftool
	tokens  chan struct{}
	closeMu sync.Mutex
	closed  bool
	all     []*exiftool.Exiftool
}

// New creates a Decoder. Exiftool processes are started on demand, so New
// never fails; use CheckAvailable to verify exiftool up front. fallback may
// be nil.
func New(cfg Config, fallback FallbackDecoder) *Decoder {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	d := &Decoder{
		cfg:      cfg,
		fallback: fallback,
		pool:     make(chan *exiftool.Exiftool, cfg.PoolSize),
		tokens:   make(chan struct{}, cfg.PoolSize),
	}
	for i := 0; i < cfg.PoolSize; i++ {
		d.tokens <- struct{}{}
	}
	return d
}

// CheckAvailable starts one exiftool process and keeps it for later use.
func (d *Decoder) CheckAvailable() error {
	et, err := d.acquire(context.Background())
	if err != nil {
		return err
	}
	d.release(et)
	return nil
}

// Decode returns the best embedded preview of path, falling back to a full
// decode when exiftool is unavailable or the file has no usable preview.
func (d *Decoder) Decode(ctx context.Context, path string) (*Raw, error) {
	raw, err := d.decodePreview(ctx, path)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if d.fallback == nil {
		return nil, err
	}

	logging.Debug("Embedded preview unavailable for %s: %v, trying ffmpeg", path, err)
	img, ferr := d.fallback.DecodeImage(ctx, path)
	if ferr != nil {
		return nil, fmt.Errorf("%w; fallback: %w", err, ferr)
	}
	orientation := 1
	if raw != nil {
		orientation = raw.Orientation
	}
	return &Raw{Image: img, Orientation: orientation, Source: "ffmpeg"}, nil
}

// decodePreview returns a partial Raw carrying the orientation alongside
// ErrNoPreview so the fallback can still rotate correctly.
func (d *Decoder) decodePreview(ctx context.Context, path string) (*Raw, error) {
	et, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	infos := et.ExtractMetadata(path)
	d.release(et)
	metrics.ExternalToolDuration.WithLabelValues("exiftool").Observe(time.Since(start).Seconds())

	if len(infos) == 0 {
		metrics.ExternalToolInvocations.WithLabelValues("exiftool", "error").Inc()
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	if infos[0].Err != nil {
		metrics.ExternalToolInvocations.WithLabelValues("exiftool", "error").Inc()
		return nil, fmt.Errorf("exiftool %s: %w", path, infos[0].Err)
	}
	metrics.ExternalToolInvocations.WithLabelValues("exiftool", "success").Inc()

	fields := infos[0].Fields
	orientation := orientationFromFields(fields)

	img, tag, err := bestPreview(fields)
	if err != nil {
		return &Raw{Orientation: orientation}, fmt.Errorf("%s: %w", path, err)
	}
	logging.Debug("Using %s (%dx%d) for %s", tag, img.Bounds().Dx(), img.Bounds().Dy(), path)
	return &Raw{Image: img, Orientation: orientation, Source: tag}, nil
}

func (d *Decoder) acquire(ctx context.Context) (*exiftool.Exiftool, error) {
	select {
	case et := <-d.pool:
		return et, nil
	default:
	}

	select {
	case et := <-d.pool:
		return et, nil
	case <-d.tokens:
		et, err := d.start()
		if err != nil {
			d.tokens <- struct{}{}
			return nil, err
		}
		return et, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Decoder) release(et *exiftool.Exiftool) {
	d.pool <- et
}

func (d *Decoder) start() (*exiftool.Exiftool, error) {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.closed {
		return nil, errors.New("decoder closed")
	}

	opts := []func(*exiftool.Exiftool) error{
		exiftool.ExtractAllBinaryMetadata(),
		exiftool.NoPrintConversion(),
	}
	if d.cfg.ExiftoolPath != "" {
		if _, err := exec.LookPath(d.cfg.ExiftoolPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExiftoolMissing, err)
		}
		opts = append(opts, exiftool.SetExiftoolBinaryPath(d.cfg.ExiftoolPath))
	}

	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExiftoolMissing, err)
	}
	d.all = append(d.all, et)
	return et, nil
}

// Close stops all exiftool processes.
func (d *Decoder) Close() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for _, et := range d.all {
		if err := et.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
