package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// WalkOptions controls which files a walk yields.
type WalkOptions struct {
	Blacklist []string
	Filter    ExtensionFilter
}

// AbsPath returns path made absolute against the working directory. Entry
// paths are cache keys, so they must not depend on where deduper runs.
func AbsPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// NormalizeRoots makes roots absolute, sorts, and de-duplicates them. Roots
// nested inside another root are dropped because the parent walk already
// covers them.
func NormalizeRoots(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		cleaned = append(cleaned, AbsPath(r))
	}
	sort.Strings(cleaned)

	out := make([]string, 0, len(cleaned))
	for _, r := range cleaned {
		if !coveredBy(r, out) {
			out = append(out, r)
		}
	}
	return out
}

// Walk recursively enumerates regular files under roots in order. Symlinks are
// not followed and blacklisted directories are skipped with their subtrees.
func Walk(fsys afero.Fs, roots []string, opts WalkOptions) ([]*Entry, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	blacklist := make([]string, 0, len(opts.Blacklist))
	for _, b := range opts.Blacklist {
		if strings.TrimSpace(b) != "" {
			blacklist = append(blacklist, AbsPath(b))
		}
	}

	var entries []*Entry
	for _, root := range roots {
		root = AbsPath(root)
		info, err := lstat(fsys, root)
		if err != nil {
			return nil, fmt.Errorf("stat root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root %s is not a directory", root)
		}
		err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrPermission) && path != root {
					if info != nil && info.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				return err
			}
			if info.IsDir() {
				if path != root && coveredBy(path, blacklist) {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			entry := NewEntry(path, info.Size(), root)
			if !opts.Filter.Allows(entry.Extension) {
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return entries, nil
}

func lstat(fsys afero.Fs, path string) (os.FileInfo, error) {
	if lst, ok := fsys.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

func coveredBy(path string, dirs []string) bool {
	for _, d := range dirs {
		if path == d || isWithin(path, d) {
			return true
		}
	}
	return false
}

func isWithin(path, parent string) bool {
	if parent == string(filepath.Separator) {
		return strings.HasPrefix(path, parent) && path != parent
	}
	return strings.HasPrefix(path, parent+string(filepath.Separator))
}
