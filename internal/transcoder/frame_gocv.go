//go:build gocv

package transcoder

import (
	"context"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"synothumb/internal/logging"
)

func defaultGrabber(t *Tool) FrameGrabber {
	return &gocvGrabber{fallback: ffmpegGrabber{tool: t}}
}

// gocvGrabber reads frames in-process through OpenCV's video capture,
// falling back to ffmpeg for containers OpenCV cannot open.
type gocvGrabber struct {
	fallback FrameGrabber
}

func (g *gocvGrabber) GrabFrame(ctx context.Context, path string, offset time.Duration) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := g.grab(path, offset)
	if err == nil {
		return img, nil
	}
	logging.Debug("OpenCV frame grab failed for %s: %v, trying ffmpeg", path, err)
	return g.fallback.GrabFrame(ctx, path, offset)
}

func (g *gocvGrabber) grab(path string, offset time.Duration) (image.Image, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			logging.Warn("failed to close capture for %s: %v", path, err)
		}
	}()

	// Rotation is applied by the caller from probe metadata.
	capture.Set(gocv.VideoCaptureOrientationAuto, 0)
	if offset > 0 {
		capture.Set(gocv.VideoCapturePosMsec, float64(offset.Milliseconds()))
	}

	mat := gocv.NewMat()
	defer func() {
		if err := mat.Close(); err != nil {
			logging.Warn("failed to close frame mat for %s: %v", path, err)
		}
	}()

	if ok := capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w: no frame at %s", ErrToolFailed, offset)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", ErrToolFailed, err)
	}
	return img, nil
}
