package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"deduper/internal/services"
)

// Runner extracts frames with a configured ffmpeg binary.
type Runner struct {
	binary string
}

// New returns a Runner. An empty binary resolves "ffmpeg" from PATH.
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary}
}

// Binary returns the ffmpeg executable.
func (r *Runner) Binary() string {
	return r.binary
}

// ProbeBinary returns the ffprobe executable that ships next to ffmpeg.
func (r *Runner) ProbeBinary() string {
	if dir := filepath.Dir(r.binary); dir != "." && strings.ContainsRune(r.binary, filepath.Separator) {
		return filepath.Join(dir, "ffprobe")
	}
	return "ffprobe"
}

// FirstFrame decodes the first video frame of path.
func (r *Runner) FirstFrame(ctx context.Context, path string) (image.Image, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ffmpeg first frame: empty path")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary,
		"-v", "error", "-nostdin", "-hide_banner",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "hashing", "extract frame",
			fmt.Sprintf("ffmpeg failed for %s: %s", path, strings.TrimSpace(stderr.String())), err)
	}
	if stdout.Len() == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "hashing", "extract frame",
			fmt.Sprintf("ffmpeg produced no frame for %s", path), nil)
	}
	img, err := imaging.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg frame: %w", err)
	}
	return img, nil
}
