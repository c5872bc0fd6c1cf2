package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"synothumb/internal/rawdecode"
	"synothumb/internal/transcoder"
)

// gradient returns a test image with a gradient pattern so resizing is
// visible.
func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// createTestImage saves a gradient image to dir/name and returns its path.
func createTestImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	switch filepath.Ext(name) {
	case ".png":
		err = png.Encode(f, gradient(width, height))
	default:
		err = jpeg.Encode(f, gradient(width, height), &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return path
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

type stubRaw struct {
	img         image.Image
	orientation int
	err         error
}

func (s *stubRaw) Decode(context.Context, string) (*rawdecode.Raw, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &rawdecode.Raw{Image: s.img, Orientation: s.orientation, Source: "PreviewImage"}, nil
}

type stubVideo struct {
	info     transcoder.VideoInfo
	frame    image.Image
	probeErr error
	filmErr  error
	offset   time.Duration
	films    int
}

func (s *stubVideo) Probe(context.Context, string) (*transcoder.VideoInfo, error) {
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	info := s.info
	return &info, nil
}

func (s *stubVideo) ExtractFrame(_ context.Context, _ string, offset time.Duration) (image.Image, error) {
	s.offset = offset
	return s.frame, nil
}

func (s *stubVideo) WriteFilmClip(_ context.Context, _, dst string) error {
	s.films++
	if s.filmErr != nil {
		return s.filmErr
	}
	return os.WriteFile(dst, []byte("FLV\x01"), 0o644)
}

var errCorrupt = errors.New("corrupt")
