package metadata

import (
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/spf13/afero"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"deduper/internal/catalog"
	"deduper/internal/services/ffmpeg"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Prober inspects video containers.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffmpeg.Result, error)
}

// NativeExtractor reads tags in process when exiftool is unavailable. It
// emits exiftool tag names so the same Resolver applies.
type NativeExtractor struct {
	fs    afero.Fs
	probe Prober
}

// NewNativeExtractor builds a NativeExtractor. probe may be nil.
func NewNativeExtractor(fsys afero.Fs, probe Prober) *NativeExtractor {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &NativeExtractor{fs: fsys, probe: probe}
}

// Extract implements Extractor.
func (n *NativeExtractor) Extract(ctx context.Context, path string) (map[string]string, error) {
	info, err := n.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	out := map[string]string{
		"FileModifyDate": info.ModTime().Format(exifTimeLayout + "-07:00"),
	}
	ext := strings.ToLower(filepath.Ext(path))
	if mt := mediaType(ext); mt != "" {
		out["MIMEType"] = mt
	}

	if catalog.IsVideo(strings.TrimPrefix(ext, ".")) {
		if n.probe != nil {
			if err := n.fromProbe(ctx, path, out); err != nil {
				return out, err
			}
		}
		return out, nil
	}
	return out, n.fromImage(path, out)
}

// Media types missing from the platform table on minimal systems.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".mk3d": "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".bmp":  "image/bmp",
}

func mediaType(ext string) string {
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	mt := mime.TypeByExtension(ext)
	return strings.TrimSpace(strings.Split(mt, ";")[0])
}

func (n *NativeExtractor) fromProbe(ctx context.Context, path string, out map[string]string) error {
	res, err := n.probe.Inspect(ctx, path)
	if err != nil {
		return err
	}
	if video, ok := res.VideoStream(); ok && video.Width > 0 {
		out["ImageWidth"] = fmt.Sprint(video.Width)
		out["ImageHeight"] = fmt.Sprint(video.Height)
	}
	if d := res.DurationSeconds(); d > 0 {
		out["Duration"] = fmt.Sprintf("%.2f s", d)
	}
	if created := res.Tag("creation_time"); created != "" {
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			out["MediaCreateDate"] = t.Format(exifTimeLayout)
		}
	}
	for tag, key := range map[string]string{"title": "Title", "artist": "Artist", "album": "Album", "genre": "Genre"} {
		if v := res.Tag(tag); v != "" {
			out[key] = v
		}
	}
	return nil
}

// fromImage reads dimensions and EXIF. Files without EXIF are not errors.
func (n *NativeExtractor) fromImage(path string, out map[string]string) error {
	f, err := n.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		out["ImageWidth"] = fmt.Sprint(cfg.Width)
		out["ImageHeight"] = fmt.Sprint(cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}
	if v := exifString(x, exif.Make); v != "" {
		out["Make"] = v
	}
	if v := exifString(x, exif.Model); v != "" {
		out["Model"] = v
	}
	if v := exifString(x, exif.Artist); v != "" {
		out["Artist"] = v
	}
	if dt, err := x.DateTime(); err == nil {
		out["DateTimeOriginal"] = dt.Format(exifTimeLayout)
	}
	if v := exifInt(x, exif.PixelXDimension); v != "" {
		out["ExifImageWidth"] = v
	}
	if v := exifInt(x, exif.PixelYDimension); v != "" {
		out["ExifImageHeight"] = v
	}
	return nil
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	if tag.Format() == tiff.StringVal {
		s, _ := tag.StringVal()
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	}
	return tag.String()
}

func exifInt(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.Int(0)
	if err != nil {
		return ""
	}
	return fmt.Sprint(v)
}
