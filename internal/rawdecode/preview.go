package rawdecode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strconv"
	"strings"

	// Embedded previews are JPEG; some DNGs embed TIFF.
	_ "image/jpeg"

	_ "golang.org/x/image/tiff"
)

// previewTags lists the exiftool tags that may carry an embedded image.
var previewTags = []string{
	"JpgFromRaw",
	"LargestImagePreview",
	"PreviewImage",
	"OtherImage",
	"ThumbnailImage",
}

const binaryPrefix = "base64:"

// binaryField decodes a binary tag returned with -b.
func binaryField(fields map[string]interface{}, tag string) ([]byte, bool) {
	v, ok := fields[tag]
	if !ok {
		return nil, false
	}
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, binaryPrefix) {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, binaryPrefix))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// bestPreview decodes the embedded preview with the largest pixel area.
func bestPreview(fields map[string]interface{}) (image.Image, string, error) {
	bestTag := ""
	var bestData []byte
	bestArea := 0

	for _, tag := range previewTags {
		data, ok := binaryField(fields, tag)
		if !ok {
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			continue
		}
		if area := cfg.Width * cfg.Height; area > bestArea {
			bestTag, bestData, bestArea = tag, data, area
		}
	}

	if bestData == nil {
		return nil, "", ErrNoPreview
	}

	img, _, err := image.Decode(bytes.NewReader(bestData))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrNoPreview, bestTag, err)
	}
	return img, bestTag, nil
}

// orientationFromFields returns the numeric EXIF orientation, defaulting to
// 1 when absent or out of range.
func orientationFromFields(fields map[string]interface{}) int {
	var o int
	switch v := fields["Orientation"].(type) {
	case float64:
		o = int(v)
	case int:
		o = v
	case int64:
		o = int(v)
	case string:
		o, _ = strconv.Atoi(v)
	}
	if o < 1 || o > 8 {
		return 1
	}
	return o
}
