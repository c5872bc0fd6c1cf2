package media

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"synothumb/internal/thumbspec"
)

// Render produces the still for descriptor d from img. The longest side
// never exceeds d.MaxDimension and smaller images are not enlarged. Padded
// descriptors are centred on a black d.MaxDimension square.
func Render(img image.Image, d thumbspec.Descriptor) image.Image {
	n := d.MaxDimension
	fitted := imaging.Fit(img, n, n, imaging.Lanczos)
	if !d.Pad {
		return fitted
	}
	canvas := imaging.New(n, n, color.Black)
	return imaging.PasteCenter(canvas, fitted)
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
