package deps

import (
	"os"
	"path/filepath"
	"testing"

	"deduper/internal/testsupport"
)

var stubScript = []byte("#!/bin/sh\nexit 0\n")

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, stubScript, 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}

func byName(statuses []Status) map[string]Status {
	out := make(map[string]Status, len(statuses))
	for _, s := range statuses {
		out[s.Name] = s
	}
	return out
}

func TestCheckFollowsConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("exiftool"))
	cfg.Metadata.UseExiftool = true
	cfg.Metadata.FFmpegBinary = "clearly-not-present-ffmpeg"
	t.Setenv("PATH", filepath.Join(testsupport.BaseDir(cfg), "bin"))

	got := Check(cfg)
	if len(got) != 3 || got[0].Name != "exiftool" || got[1].Name != "FFmpeg" || got[2].Name != "ffprobe" {
		t.Fatalf("unexpected tool order %#v", got)
	}
	exif := got[0]
	if !exif.Available || exif.Optional || exif.Detail != "" || !filepath.IsAbs(exif.Command) {
		t.Fatalf("stubbed exiftool should be required and resolved: %#v", exif)
	}
	ffmpeg := got[1]
	if ffmpeg.Available || !ffmpeg.Optional || ffmpeg.Command != "clearly-not-present-ffmpeg" || ffmpeg.Detail == "" {
		t.Fatalf("missing ffmpeg should be an optional miss: %#v", ffmpeg)
	}

	cfg.Metadata.UseExiftool = false
	if !Check(cfg)[0].Optional {
		t.Fatal("exiftool must be optional when disabled")
	}
}

func TestCheckReportsUnconfiguredCommand(t *testing.T) {
	s := tool{name: "blank", command: "  "}.status()
	if s.Available || s.Detail != errNotConfigured.Error() {
		t.Fatalf("blank command: %#v", s)
	}
}

func TestAvailable(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	writeStub(t, present)
	if !Available(present) {
		t.Fatal("stub should be available")
	}
	if Available("") || Available("clearly-not-present-binary") {
		t.Fatal("blank and unknown commands must be unavailable")
	}
}

func TestFFprobePrefersBinaryBesideFFmpeg(t *testing.T) {
	tmp := t.TempDir()
	ffmpeg := filepath.Join(tmp, "tools", "ffmpeg")
	beside := filepath.Join(tmp, "tools", "ffprobe")
	onPath := filepath.Join(tmp, "bin", "ffprobe")
	writeStub(t, ffmpeg)
	writeStub(t, beside)
	writeStub(t, onPath)
	t.Setenv("PATH", filepath.Join(tmp, "bin"))

	got, err := ffprobeFor(ffmpeg)
	if err != nil || got != beside {
		t.Fatalf("ffprobeFor = %q, %v; want %q", got, err, beside)
	}

	if err := os.Remove(beside); err != nil {
		t.Fatal(err)
	}
	got, err = ffprobeFor(ffmpeg)
	if err != nil || got != onPath {
		t.Fatalf("PATH fallback = %q, %v; want %q", got, err, onPath)
	}
}

func TestFFprobeMissing(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := testsupport.NewConfig(t)
	cfg.Metadata.FFmpegBinary = filepath.Join(t.TempDir(), "ffmpeg")

	probe := byName(Check(cfg))["ffprobe"]
	if probe.Available || probe.Command != "ffprobe" || probe.Detail == "" {
		t.Fatalf("ffprobe should be reported missing: %#v", probe)
	}
}
