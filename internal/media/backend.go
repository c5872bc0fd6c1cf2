package media

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"synothumb/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Backend names accepted by NewBackend.
const (
	BackendImaging = "imaging"
	BackendVips    = "vips"
)

// ImageBackend decodes still images. The returned image is upright and may
// already be shrunk so its longest side is at least maxDimension.
type ImageBackend interface {
	Name() string
	Load(ctx context.Context, path string, maxDimension int) (image.Image, error)
}

// FallbackDecoder decodes files the Go decoders reject.
// transcoder.Tool satisfies it.
type FallbackDecoder interface {
	DecodeImage(ctx context.Context, path string) (image.Image, error)
}

// NewBackend returns the backend called name. fallback may be nil.
func NewBackend(name string, fallback FallbackDecoder) (ImageBackend, error) {
	base := &imagingBackend{fallback: fallback}

	switch strings.ToLower(name) {
	case "", BackendImaging:
		return base, nil
	case BackendVips:
		if err := InitVips(); err != nil {
			return nil, err
		}
		return &vipsBackend{fallback: base}, nil
	default:
		return nil, fmt.Errorf("unknown image backend %q (want %s or %s)", name, BackendImaging, BackendVips)
	}
}

// imagingBackend decodes with the standard library decoders through
// disintegration/imaging and orients from EXIF.
type imagingBackend struct {
	fallback FallbackDecoder
}

func (b *imagingBackend) Name() string { return BackendImaging }

func (b *imagingBackend) Load(ctx context.Context, path string, _ int) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if b.fallback == nil {
			return nil, err
		}
		logging.Debug("imaging.Open failed for %s: %v, trying ffmpeg fallback", path, err)
		fimg, ferr := b.fallback.DecodeImage(ctx, path)
		if ferr != nil {
			return nil, fmt.Errorf("all image decode methods failed: %w; fallback: %w", err, ferr)
		}
		img = fimg
	}

	return ApplyOrientation(img, ReadOrientation(path)), nil
}
