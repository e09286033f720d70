// Package deps reports which external tools deduper can run on this host.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"deduper/internal/config"
)

var errNotConfigured = errors.New("command not configured")

// Status is the result of looking up one external tool. Command holds the
// resolved path when the tool was found and the configured name otherwise.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// tool is an external program deduper may shell out to.
type tool struct {
	name     string
	command  string
	purpose  string
	optional bool
	locate   func(command string) (string, error)
}

// tools lists what the configuration refers to. exiftool is required only
// when metadata.use_exiftool is set; the video tools only widen coverage.
func tools(cfg *config.Config) []tool {
	ffmpeg := cfg.FFmpegBinary()
	return []tool{
		{
			name:     "exiftool",
			command:  cfg.ExiftoolBinary(),
			purpose:  "Metadata extraction for rename and stats",
			optional: !cfg.Metadata.UseExiftool,
		},
		{
			name:     "FFmpeg",
			command:  ffmpeg,
			purpose:  "Video frames for perceptual hashing and thumbnails",
			optional: true,
		},
		{
			name:     "ffprobe",
			command:  "ffprobe",
			purpose:  "Video metadata when exiftool is not used",
			optional: true,
			locate:   func(string) (string, error) { return ffprobeFor(ffmpeg) },
		},
	}
}

// Check looks up every tool the configuration refers to, in a fixed order.
func Check(cfg *config.Config) []Status {
	list := tools(cfg)
	out := make([]Status, 0, len(list))
	for _, t := range list {
		out = append(out, t.status())
	}
	return out
}

func (t tool) status() Status {
	s := Status{
		Name:        t.name,
		Command:     strings.TrimSpace(t.command),
		Description: t.purpose,
		Optional:    t.optional,
	}
	locate := t.locate
	if locate == nil {
		locate = resolve
	}
	path, err := locate(s.Command)
	switch {
	case errors.Is(err, errNotConfigured):
		s.Detail = err.Error()
	case err != nil:
		s.Detail = fmt.Sprintf("binary %q not found", s.Command)
	default:
		s.Command = path
		s.Available = true
	}
	return s
}

// Available reports whether command resolves to an executable.
func Available(command string) bool {
	_, err := resolve(command)
	return err == nil
}

func resolve(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", errNotConfigured
	}
	return exec.LookPath(command)
}

// ffprobeFor prefers the ffprobe installed beside ffmpeg so both come from
// the same build, then falls back to PATH.
func ffprobeFor(ffmpeg string) (string, error) {
	name := "ffprobe"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if bin, err := resolve(ffmpeg); err == nil {
		beside := filepath.Join(filepath.Dir(bin), name)
		if info, err := os.Stat(beside); err == nil && executable(info) {
			return beside, nil
		}
	}
	return exec.LookPath("ffprobe")
}

func executable(info os.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}
