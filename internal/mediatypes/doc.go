// Package mediatypes classifies files into the media kinds synothumb knows
// how to thumbnail.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains the MediaKind
// enum, the extension tables and pure helper functions.
//
// # Classification
//
// Classify maps a path to a MediaKind using only its extension, compared
// case-insensitively:
//
//	switch mediatypes.Classify(path) {
//	case mediatypes.KindImage:
//	    // JPEG, PNG, TIFF, ...
//	case mediatypes.KindRaw:
//	    // camera RAW (CR2, CR3, NEF, DNG, ...)
//	case mediatypes.KindVideo:
//	    // MP4, MOV, MKV, ...
//	case mediatypes.KindUnsupported:
//	    // skipped by the pipeline
//	}
//
// # Supported Formats
//
// The extension maps (ImageExtensions, RawExtensions, VideoExtensions) can be
// used directly for iteration, e.g. in tests or help output.
package mediatypes
