package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaKind represents how a source file is turned into thumbnails.
type MediaKind int

const (
	// KindUnsupported is any file synothumb does not process.
	KindUnsupported MediaKind = iota
	// KindImage is a still image decodable by the general image library.
	KindImage
	// KindRaw is a camera RAW file that needs the RAW decoder.
	KindRaw
	// KindVideo is a video file handled by the video tool.
	KindVideo
)

// Kinds lists every supported kind in a stable order.
var Kinds = []MediaKind{KindImage, KindRaw, KindVideo}

// String returns the lowercase name used in logs and metric labels.
func (k MediaKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindRaw:
		return "raw"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// Supported reports whether the kind produces thumbnails.
func (k MediaKind) Supported() bool {
	return k == KindImage || k == KindRaw || k == KindVideo
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".gif":  true,
	".webp": true,
}

// RawExtensions maps file extensions to whether they are supported camera RAW formats.
var RawExtensions = map[string]bool{
	".arw": true,
	".cr2": true,
	".cr3": true,
	".crw": true,
	".dng": true,
	".erf": true,
	".nef": true,
	".nrw": true,
	".orf": true,
	".pef": true,
	".raf": true,
	".raw": true,
	".rw2": true,
	".sr2": true,
	".srf": true,
	".x3f": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mov":  true,
	".m4v":  true,
	".mp4":  true,
	".avi":  true,
	".mkv":  true,
	".mpg":  true,
	".mpeg": true,
	".wmv":  true,
	".3gp":  true,
	".flv":  true,
}

// KindForExtension returns the MediaKind for an extension including the
// leading dot. Case is ignored.
func KindForExtension(ext string) MediaKind {
	ext = strings.ToLower(ext)
	switch {
	case ImageExtensions[ext]:
		return KindImage
	case RawExtensions[ext]:
		return KindRaw
	case VideoExtensions[ext]:
		return KindVideo
	default:
		return KindUnsupported
	}
}

// Classify returns the MediaKind of path based on its extension alone.
// It performs no I/O.
func Classify(path string) MediaKind {
	return KindForExtension(filepath.Ext(path))
}

// IsMediaFile returns true if the path has a supported extension.
func IsMediaFile(path string) bool {
	return Classify(path).Supported()
}
