package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"deduper/internal/deps"
	"deduper/internal/hashing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Cache", statusError, "locked", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Cache:", "[ERROR] locked")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Cache", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "exiftool", Available: false, Detail: `binary "exiftool" not found`},
		{Name: "FFmpeg", Available: true, Command: "ffmpeg", Optional: true},
		{Name: "ffprobe", Available: false, Optional: true},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR]") {
		t.Fatalf("required tool should be an error, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: ffmpeg)") {
		t.Fatalf("expected ready detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not available (optional)") {
		t.Fatalf("expected optional warning, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies") || !strings.Contains(lines[3], "exiftool") {
		t.Fatalf("expected missing summary, got %q", lines[3])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
	if newProgressReporter(&bytes.Buffer{}) != nil {
		t.Fatal("progress bars need a terminal")
	}
}

func TestProgressReporterDropsStaleCounts(t *testing.T) {
	p := &progressReporter{out: io.Discard}
	p.update(hashing.Partial, 2, 3)
	p.update(hashing.Partial, 1, 3)
	if p.done != 2 {
		t.Fatalf("stale count applied: done=%d", p.done)
	}
	p.update(hashing.Partial, 3, 3)
	if !p.finished || p.bar != nil {
		t.Fatal("batch should be finished")
	}
	p.update(hashing.Full, 1, 2)
	if p.finished || p.kind != hashing.Full || p.done != 1 {
		t.Fatalf("new batch not started: %+v", p)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{"": outputTable, "JSON": outputJSON, "yml": outputYAML} {
		got, err := parseOutputFormat(in)
		if err != nil || got != want {
			t.Fatalf("parseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseOutputFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}
