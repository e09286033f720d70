package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"deduper/internal/hashing"
)

// progressReporter draws one bar per hashing batch.
type progressReporter struct {
	out io.Writer

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	kind     hashing.Kind
	total    int64
	done     int64
	finished bool
}

// newProgressReporter returns nil when out is not a terminal.
func newProgressReporter(out io.Writer) *progressReporter {
	if !isTerminal(out) {
		return nil
	}
	return &progressReporter{out: out}
}

func (p *progressReporter) update(kind hashing.Kind, done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Workers report out of order; stale counts are dropped.
	sameBatch := p.kind == kind && p.total == total
	if sameBatch && p.finished && done > 1 {
		return
	}
	if sameBatch && !p.finished && done <= p.done {
		return
	}
	if p.bar == nil || !sameBatch || p.finished {
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		p.kind, p.total, p.done, p.finished = kind, total, 0, false
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(progressLabel(kind)),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.done = done
	_ = p.bar.Set64(done)
	if done >= total {
		_ = p.bar.Finish()
		p.bar = nil
		p.finished = true
	}
}

func progressLabel(kind hashing.Kind) string {
	switch kind {
	case hashing.Partial:
		return "Sampling"
	case hashing.Perceptual:
		return "Fingerprinting"
	default:
		return "Hashing"
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
