package pipeline

import (
	"errors"
	"fmt"

	"synothumb/internal/filesystem"
	"synothumb/internal/media"
	"synothumb/internal/rawdecode"
	"synothumb/internal/transcoder"
)

// Class is the error category recorded for a failure.
type Class int

const (
	ClassUnclassified Class = iota
	ClassDiscovery
	ClassDecode
	ClassExternalTool
	ClassWrite
	ClassDependency
	ClassDiskFull
)

func (c Class) String() string {
	switch c {
	case ClassDiscovery:
		return "discovery"
	case ClassDecode:
		return "decode"
	case ClassExternalTool:
		return "external_tool"
	case ClassWrite:
		return "write"
	case ClassDependency:
		return "dependency"
	case ClassDiskFull:
		return "disk_full"
	default:
		return "unclassified"
	}
}

// Fatal reports whether errors of this class end the run.
func (c Class) Fatal() bool {
	return c == ClassDiscovery || c == ClassDependency || c == ClassDiskFull
}

// FileError is a classified error for one path.
type FileError struct {
	Class Class
	Path  string
	Err   error
}

func (e *FileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Class, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by the generator onto a Class.
func Classify(err error) Class {
	var fe *FileError
	switch {
	case err == nil:
		return ClassUnclassified
	case errors.As(err, &fe):
		return fe.Class
	case filesystem.IsNoSpace(err):
		return ClassDiskFull
	case errors.Is(err, media.ErrWrite):
		return ClassWrite
	case errors.Is(err, media.ErrDecode):
		return ClassDecode
	case errors.Is(err, transcoder.ErrToolFailed),
		errors.Is(err, transcoder.ErrToolMissing),
		errors.Is(err, rawdecode.ErrExiftoolMissing):
		return ClassExternalTool
	default:
		return ClassUnclassified
	}
}

// ClassOf returns the Class of err, or ClassUnclassified.
func ClassOf(err error) Class {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ClassUnclassified
}
