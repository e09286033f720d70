// Package ffmpeg wraps the ffmpeg and ffprobe command-line tools.
//
// FirstFrame renders the first video frame as PNG on stdout and decodes it,
// giving the perceptual hasher and thumbnailer a still image for video
// files. Inspect runs ffprobe and decodes its JSON description, which the
// metadata fallback uses for duration and dimensions.
package ffmpeg
