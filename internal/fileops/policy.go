package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ConflictPolicy decides what happens when a target already exists.
type ConflictPolicy string

const (
	AppendIndex ConflictPolicy = "append_index"
	Skip        ConflictPolicy = "skip"
	Abort       ConflictPolicy = "abort"
)

// ParseConflictPolicy accepts the config spelling of a policy.
func ParseConflictPolicy(value string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case AppendIndex, Skip, Abort:
		return p, nil
	case "":
		return AppendIndex, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q (want append_index, skip, or abort)", value)
}

// maxAttempts bounds the suffix search.
const maxAttempts = 10000

// ErrNoFreeName is returned when every suffix up to maxAttempts is taken.
var ErrNoFreeName = errors.New("no free file name")

// NextFreePath returns target with "_N" inserted before the extension, using
// the smallest N in [1, 10000] that does not exist.
func NextFreePath(fsys afero.Fs, target string) (string, error) {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, attempt, ext))
		exists, err := pathExists(fsys, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %s after %d attempts", ErrNoFreeName, target, maxAttempts)
}

func pathExists(fsys afero.Fs, path string) (bool, error) {
	if _, err := lstat(fsys, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if lst, ok := fsys.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}
