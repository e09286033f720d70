package logs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"
)

// FileName is the log file written inside the log directory.
const FileName = "deduper.log"

// TailOptions selects lines from the end of a log file.
type TailOptions struct {
	// Limit is the number of lines to return; values below 1 return none.
	Limit int
	// Match keeps only lines containing this text, such as a scan id.
	Match string
}

// Tail returns the last matching lines of path, oldest first. A missing file
// yields no lines.
func Tail(fsys afero.Fs, path string, opts TailOptions) ([]string, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Limit <= 0 {
		return nil, nil
	}

	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]string, opts.Limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if opts.Match != "" && !strings.Contains(line, opts.Match) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % opts.Limit
		if count < opts.Limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, count)
	if count == opts.Limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%opts.Limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
