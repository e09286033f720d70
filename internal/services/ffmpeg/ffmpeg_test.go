package ffmpeg

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"deduper/internal/services"
)

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestFirstFrameDecodesPNG(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, A: 255})
	f, err := os.Create(framePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	bin := filepath.Join(dir, "ffmpeg")
	writeScript(t, bin, "cat "+framePath)

	frame, err := New(bin).FirstFrame(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("FirstFrame: %v", err)
	}
	if b := frame.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestFirstFrameReportsToolFailure(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	writeScript(t, bin, "echo 'moov atom not found' >&2; exit 1")

	_, err := New(bin).FirstFrame(context.Background(), "/videos/broken.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	empty := filepath.Join(dir, "silent")
	writeScript(t, empty, "exit 0")
	if _, err := New(empty).FirstFrame(context.Background(), "/videos/a.mp4"); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestProbeBinaryFollowsFFmpegLocation(t *testing.T) {
	if got := New("").ProbeBinary(); got != "ffprobe" {
		t.Fatalf("PATH lookup: got %q", got)
	}
	if got := New("/opt/ff/bin/ffmpeg").ProbeBinary(); got != "/opt/ff/bin/ffprobe" {
		t.Fatalf("sibling lookup: got %q", got)
	}
}

func TestInspectParsesStreams(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "ffprobe"), `cat <<'JSON'
{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1920,"height":1080}],
 "format":{"duration":"12.5","tags":{"creation_time":"2021-04-01T10:00:00Z"}}}
JSON`)

	res, err := New(filepath.Join(dir, "ffmpeg")).Inspect(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	video, ok := res.VideoStream()
	if !ok || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream %+v", video)
	}
	if res.DurationSeconds() != 12.5 {
		t.Fatalf("duration = %v", res.DurationSeconds())
	}
	if res.Tag("CREATION_TIME") != "2021-04-01T10:00:00Z" {
		t.Fatalf("tag lookup failed: %v", res.Format.Tags)
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	res := Result{Format: Format{Duration: "bad"}}
	if res.DurationSeconds() != 0 {
		t.Fatalf("expected 0, got %v", res.DurationSeconds())
	}
	if !math.IsNaN(parseFloat("nope")) {
		t.Fatal("expected NaN")
	}
}
