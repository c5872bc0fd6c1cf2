package thumbspec

import (
	"errors"
	"io/fs"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
)

// Checker decides whether a source file's outputs are already complete.
type Checker struct {
	Retry filesystem.RetryConfig
}

// NewChecker returns a Checker using the default NFS retry policy.
func NewChecker() *Checker {
	return &Checker{Retry: filesystem.DefaultRetryConfig()}
}

// IsComplete reports whether every expected output for src exists with a
// non-zero size. Files of unsupported kinds have nothing to generate and are
// never complete.
func (c *Checker) IsComplete(src SourceFile) bool {
	if !src.Kind.Supported() {
		return false
	}
	return len(c.Missing(src)) == 0
}

// Missing returns the tags whose outputs are absent, empty or unreadable,
// in descriptor order.
func (c *Checker) Missing(src SourceFile) []Tag {
	var missing []Tag
	for _, d := range table[src.Kind] {
		path := Path(src, d)
		info, err := filesystem.StatWithRetry(path, c.Retry)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Debug("stat %s: %v", path, err)
			}
			missing = append(missing, d.Tag)
			continue
		}
		if !info.Mode().IsRegular() || info.Size() == 0 {
			missing = append(missing, d.Tag)
		}
	}
	return missing
}

var defaultChecker = NewChecker()

// IsComplete reports whether src's output set is complete using the default
// Checker.
func IsComplete(src SourceFile) bool {
	return defaultChecker.IsComplete(src)
}
