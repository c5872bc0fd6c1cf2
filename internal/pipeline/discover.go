package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
	"synothumb/internal/mediatypes"
	"synothumb/internal/metrics"
	"synothumb/internal/thumbspec"
)

// Discovery is the result of walking a root directory.
type Discovery struct {
	Files       []thumbspec.SourceFile
	Unsupported int
}

// ValidateRoot checks that root is an existing, readable directory.
func ValidateRoot(root string) error {
	info, err := filesystem.StatWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		return &FileError{Class: ClassDiscovery, Path: root, Err: err}
	}
	if !info.IsDir() {
		return &FileError{Class: ClassDiscovery, Path: root, Err: errors.New("not a directory")}
	}

	f, err := filesystem.OpenWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		return &FileError{Class: ClassDiscovery, Path: root, Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", root, err)
		}
	}()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return &FileError{Class: ClassDiscovery, Path: root, Err: fmt.Errorf("unreadable: %w", err)}
	}
	return nil
}

// appleDoublePrefix marks macOS resource-fork files, which carry the
// extension of the file they describe but hold no image data.
const appleDoublePrefix = "._"

// skipEntry reports whether a directory entry is outside the media tree:
// thumbnail folders, hidden directories and AppleDouble files. Other
// dot-prefixed files are media like any other.
func skipEntry(name string, isDir bool) bool {
	if isDir {
		return name == thumbspec.EADir || strings.HasPrefix(name, ".")
	}
	return strings.HasPrefix(name, appleDoublePrefix)
}

// walkRoot appends a separator to root so WalkDir follows a symlinked root
// instead of reporting the link itself. Paths below it keep root's prefix.
func walkRoot(root string) string {
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return root
	}
	return root + string(filepath.Separator)
}

// Discover walks root and classifies every file. A symlinked root is
// followed. Unreadable subdirectories are logged and skipped.
func Discover(ctx context.Context, root string) (*Discovery, error) {
	d := &Discovery{}

	root = walkRoot(root)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && skipEntry(entry.Name(), entry.IsDir()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() || !isFile(path, entry) {
			return nil
		}

		src := thumbspec.NewSourceFile(path)
		if src.Kind == mediatypes.KindUnsupported {
			d.Unsupported++
			return nil
		}
		d.Files = append(d.Files, src)
		return nil
	})
	if err != nil {
		return d, err
	}

	metrics.PipelineUnsupportedFiles.Add(float64(d.Unsupported))
	for _, f := range d.Files {
		metrics.PipelineFilesDiscovered.WithLabelValues(f.Kind.String()).Inc()
	}
	return d, nil
}

// isFile accepts regular files and symlinks resolving to regular files.
func isFile(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
