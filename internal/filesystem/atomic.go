package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"synothumb/internal/logging"
)

// TempSuffix marks in-progress output files. Leftovers carrying it can be
// removed safely once no run is active.
const TempSuffix = ".synothumb-tmp"

// ErrNoSpace is returned (wrapped) when a write fails because the device is full.
var ErrNoSpace = errors.New("no space left on device")

// IsNoSpace reports whether err is a disk-full condition.
func IsNoSpace(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoSpace) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ENOSPC || errno == syscall.EDQUOT
	}
	return false
}

func classifyWriteErr(err error) error {
	if err != nil && IsNoSpace(err) && !errors.Is(err, ErrNoSpace) {
		return fmt.Errorf("%w: %w", ErrNoSpace, err)
	}
	return err
}

// EnsureDir creates dir and any parents. An existing directory is not an
// error, so concurrent callers targeting the same or sibling paths are safe.
func EnsureDir(dir string) error {
	start := time.Now()
	err := os.MkdirAll(dir, 0o755)
	observeOperation("mkdir", time.Since(start).Seconds(), err)
	return classifyWriteErr(err)
}

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename. On any failure the temporary file is removed
// and path is left untouched.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	start := time.Now()
	defer func() {
		observeOperation("write", time.Since(start).Seconds(), err)
	}()

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*"+TempSuffix)
	if err != nil {
		return classifyWriteErr(err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return classifyWriteErr(err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return classifyWriteErr(err)
	}
	if err = tmp.Close(); err != nil {
		return classifyWriteErr(err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return classifyWriteErr(err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return classifyWriteErr(err)
	}
	return nil
}

// IsTempFile reports whether name looks like a leftover from WriteFileAtomic.
func IsTempFile(name string) bool {
	return strings.HasSuffix(name, TempSuffix)
}

// TempPathFor returns a unique, not yet existing sibling of path for external
// tools that write files themselves. Publish it with CommitTemp.
func TempPathFor(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+TempSuffix)
}

// CommitTemp renames a finished temporary file over dst. An empty temporary
// file is rejected and removed, so a tool that exits cleanly without output
// cannot produce a zero-byte result.
func CommitTemp(tmp, dst string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("refusing to publish empty output %s", dst)
	}
	start := time.Now()
	err = os.Rename(tmp, dst)
	observeOperation("write", time.Since(start).Seconds(), err)
	if err != nil {
		_ = os.Remove(tmp)
	}
	return classifyWriteErr(err)
}

// RemoveQuietly deletes path, ignoring a missing file. Other failures are
// logged; callers use it on cleanup paths that already carry an error.
func RemoveQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("failed to remove %s: %v", path, err)
	}
}
