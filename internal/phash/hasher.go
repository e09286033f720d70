package phash

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	// Decoders beyond the ones imaging registers.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoPicture marks a readable file that yields no picture, such as a
// corrupt image or a video the frame extractor rejects. Open and stat
// failures never carry it.
var ErrNoPicture = errors.New("no picture")

// FrameExtractor returns a representative frame for a video file.
type FrameExtractor interface {
	FirstFrame(ctx context.Context, path string) (image.Image, error)
}

// Hasher decodes files and computes their signatures.
type Hasher struct {
	fs     afero.Fs
	frames FrameExtractor
}

// NewHasher builds a Hasher. frames may be nil, in which case videos have
// no signature.
func NewHasher(fs afero.Fs, frames FrameExtractor) *Hasher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Hasher{fs: fs, frames: frames}
}

// Decode opens an image applying its EXIF orientation.
func (h *Hasher) Decode(path string) (image.Image, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", path, ErrNoPicture, err)
	}
	return img, nil
}

// Image loads the image used for hashing and thumbnails. video selects the
// frame extractor instead of the image decoders. ok is false when the file
// has no usable picture. Errors wrapping ErrNoPicture mean the file was
// readable; any other error is an I/O failure.
func (h *Hasher) Image(ctx context.Context, path string, video bool) (image.Image, bool, error) {
	if video {
		if _, err := h.fs.Stat(path); err != nil {
			return nil, false, err
		}
		if h.frames == nil {
			return nil, false, nil
		}
		img, err := h.frames.FirstFrame(ctx, path)
		if err != nil {
			return nil, false, fmt.Errorf("frame %s: %w: %w", path, ErrNoPicture, err)
		}
		return img, img != nil, nil
	}
	img, err := h.Decode(path)
	if err != nil {
		return nil, false, err
	}
	return img, true, nil
}

// Hash returns the signature of path. ok is false when no picture could be
// produced; err carries the reason.
func (h *Hasher) Hash(ctx context.Context, path string, video bool) (Signature, bool, error) {
	img, ok, err := h.Image(ctx, path, video)
	if err != nil || !ok {
		return 0, false, err
	}
	return Compute(img), true, nil
}
