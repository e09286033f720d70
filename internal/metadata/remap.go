package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Remaps holds per-field raw value to display value tables.
type Remaps map[string]map[string]string

// RemapFileName returns the file name holding remaps for field.
func RemapFileName(field string) string {
	return strings.ReplaceAll(field, " ", "_") + ".conf"
}

// LoadRemaps reads <dir>/<Field_name>.conf for every field of vocab. Missing
// files and a missing directory are not errors.
func LoadRemaps(fsys afero.Fs, dir string, vocab *Vocabulary) (Remaps, error) {
	out := make(Remaps)
	if strings.TrimSpace(dir) == "" {
		return out, nil
	}
	for _, field := range vocab.Fields() {
		path := filepath.Join(dir, RemapFileName(field))
		table, err := readRemapFile(fsys, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load remap %s: %w", path, err)
		}
		if len(table) > 0 {
			out[field] = table
		}
	}
	return out, nil
}

func readRemapFile(fsys afero.Fs, path string) (map[string]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key=value", line)
		}
		table[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
