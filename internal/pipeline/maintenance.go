package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
	"synothumb/internal/thumbspec"
)

// Incomplete is a source file whose output set is missing entries.
type Incomplete struct {
	Path    string
	Missing []thumbspec.Tag
}

// VerifyReport lists incomplete output sets under a root.
type VerifyReport struct {
	Checked    int
	Incomplete []Incomplete
}

// Verify reports every supported file under root whose output set is not
// complete. Nothing is written.
func Verify(ctx context.Context, root string, checker *thumbspec.Checker) (*VerifyReport, error) {
	if err := ValidateRoot(root); err != nil {
		return nil, err
	}
	if checker == nil {
		checker = thumbspec.NewChecker()
	}

	disc, err := Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Checked: len(disc.Files)}
	for _, src := range disc.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if missing := checker.Missing(src); len(missing) > 0 {
			report.Incomplete = append(report.Incomplete, Incomplete{Path: src.Path, Missing: missing})
		}
	}
	return report, nil
}

// CleanReport lists what Clean removed.
type CleanReport struct {
	TempFiles  []string
	EmptyFiles []string
}

// Removed returns the total number of removed files.
func (r *CleanReport) Removed() int {
	return len(r.TempFiles) + len(r.EmptyFiles)
}

// Clean removes interrupted-write leftovers and zero-byte outputs from every
// thumbnail folder under root. Source files are never touched.
func Clean(ctx context.Context, root string) (*CleanReport, error) {
	if err := ValidateRoot(root); err != nil {
		return nil, err
	}

	root = walkRoot(root)
	report := &CleanReport{}
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
		if entry.IsDir() || !entry.Type().IsRegular() || !insideEADir(root, path) {
			return nil
		}

		if filesystem.IsTempFile(entry.Name()) {
			if err := os.Remove(path); err != nil {
				logging.Warn("failed to remove %s: %v", path, err)
				return nil
			}
			report.TempFiles = append(report.TempFiles, path)
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to stat %s: %v", path, err)
			return nil
		}
		if info.Size() == 0 {
			if err := os.Remove(path); err != nil {
				logging.Warn("failed to remove %s: %v", path, err)
				return nil
			}
			report.EmptyFiles = append(report.EmptyFiles, path)
		}
		return nil
	})
	return report, err
}

// insideEADir reports whether path has a thumbnail folder among its parents.
func insideEADir(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return false
	}
	for rel != "." && rel != string(filepath.Separator) && rel != "" {
		if filepath.Base(rel) == thumbspec.EADir {
			return true
		}
		rel = filepath.Dir(rel)
	}
	return false
}
