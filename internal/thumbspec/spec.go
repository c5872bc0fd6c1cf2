package thumbspec

import (
	"path/filepath"

	"synothumb/internal/mediatypes"
)

// EADir is the per-directory output folder name the photo server reads.
const EADir = "@eaDir"

// Tag identifies one output of a set.
type Tag string

const (
	TagXL      Tag = "XL"
	TagL       Tag = "L"
	TagB       Tag = "B"
	TagM       Tag = "M"
	TagS       Tag = "S"
	TagPreview Tag = "PREVIEW"
	TagFilm    Tag = "FILM"
)

// OutputType distinguishes still images from the video preview clip.
type OutputType int

const (
	Still OutputType = iota
	FilmClip
)

// JPEG qualities used by the photo server's own indexer.
const (
	ThumbQuality   = 95
	PreviewQuality = 90
)

// Film clip parameters.
const (
	FilmWidth      = 320
	FilmHeight     = 180
	FilmFrameRate  = 12
	FilmSampleRate = 44100
	FilmChannels   = 2
)

// Descriptor describes one required output file.
type Descriptor struct {
	Tag  Tag
	Name string
	// MaxDimension caps the longest side. For padded outputs it is the
	// side of the square canvas.
	MaxDimension int
	// Pad fits the image inside a MaxDimension square and fills the rest
	// with black.
	Pad     bool
	Quality int
	Output  OutputType
}

var (
	descXL      = Descriptor{Tag: TagXL, Name: "SYNOPHOTO_THUMB_XL.jpg", MaxDimension: 1280, Quality: ThumbQuality}
	descL       = Descriptor{Tag: TagL, Name: "SYNOPHOTO_THUMB_L.jpg", MaxDimension: 800, Quality: ThumbQuality}
	descB       = Descriptor{Tag: TagB, Name: "SYNOPHOTO_THUMB_B.jpg", MaxDimension: 640, Quality: ThumbQuality}
	descM       = Descriptor{Tag: TagM, Name: "SYNOPHOTO_THUMB_M.jpg", MaxDimension: 320, Quality: ThumbQuality}
	descS       = Descriptor{Tag: TagS, Name: "SYNOPHOTO_THUMB_S.jpg", MaxDimension: 160, Quality: ThumbQuality}
	descPreview = Descriptor{Tag: TagPreview, Name: "SYNOPHOTO_THUMB_PREVIEW.jpg", MaxDimension: 120, Pad: true, Quality: PreviewQuality}
	descFilm    = Descriptor{Tag: TagFilm, Name: "SYNOPHOTO:FILM.flv", MaxDimension: FilmWidth, Output: FilmClip}
)

// Descriptors are ordered largest first so each still can be resized from
// the previous one.
var table = map[mediatypes.MediaKind][]Descriptor{
	mediatypes.KindImage: {descXL, descL, descB, descM, descS, descPreview},
	mediatypes.KindRaw:   {descXL, descL, descB, descM, descS, descPreview},
	mediatypes.KindVideo: {descXL, descL, descB, descM, descS, descFilm},
}

// For returns the descriptors required for kind. The returned slice is a
// copy. Unsupported kinds have no descriptors.
func For(kind mediatypes.MediaKind) []Descriptor {
	ds := table[kind]
	out := make([]Descriptor, len(ds))
	copy(out, ds)
	return out
}

// Stills returns the still-image descriptors for kind.
func Stills(kind mediatypes.MediaKind) []Descriptor {
	var out []Descriptor
	for _, d := range table[kind] {
		if d.Output == Still {
			out = append(out, d)
		}
	}
	return out
}

// Film returns the film clip descriptor for kind, if any.
func Film(kind mediatypes.MediaKind) (Descriptor, bool) {
	for _, d := range table[kind] {
		if d.Output == FilmClip {
			return d, true
		}
	}
	return Descriptor{}, false
}

// SourceFile is a discovered media file.
type SourceFile struct {
	Path string
	Dir  string
	Kind mediatypes.MediaKind
}

// NewSourceFile classifies path and returns its SourceFile.
func NewSourceFile(path string) SourceFile {
	return SourceFile{
		Path: path,
		Dir:  filepath.Dir(path),
		Kind: mediatypes.Classify(path),
	}
}

// OutputDir returns the directory holding src's outputs.
func OutputDir(src SourceFile) string {
	return filepath.Join(src.Dir, EADir, filepath.Base(src.Path))
}

// OutputSet is the concrete list of files a source file requires.
type OutputSet struct {
	Dir   string
	Files map[Tag]string
}

// Outputs returns the output set for src.
func Outputs(src SourceFile) OutputSet {
	dir := OutputDir(src)
	set := OutputSet{Dir: dir, Files: make(map[Tag]string)}
	for _, d := range table[src.Kind] {
		set.Files[d.Tag] = filepath.Join(dir, d.Name)
	}
	return set
}

// Path returns the output path for d within src's output set.
func Path(src SourceFile, d Descriptor) string {
	return filepath.Join(OutputDir(src), d.Name)
}
