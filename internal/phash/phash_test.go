package phash

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

func smoothImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	s := float64(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)/s, float64(y)/s
			dx, dy := fx-0.3, fy-0.6
			v := 120 +
				40*math.Sin(fx*12.8)*math.Cos(fy*8.5) +
				30*(fx-fy) +
				40*math.Exp(-(dx*dx+dy*dy)/0.045)
			c := uint8(math.Round(v))
			img.SetNRGBA(x, y, color.NRGBA{R: c, G: c, B: c, A: 255})
		}
	}
	return img
}

func invert(src *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(src)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255 - out.Pix[i]
		out.Pix[i+1] = 255 - out.Pix[i+1]
		out.Pix[i+2] = 255 - out.Pix[i+2]
	}
	return out
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median = %v, want 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %v, want 2.5", got)
	}
	values := []float64{4, 1, 3, 2}
	_ = median(values)
	if values[0] != 4 {
		t.Fatal("median must not reorder its input")
	}
}

func TestSimilarThreshold(t *testing.T) {
	a := Signature(0)
	b := Signature(0b1111111) // 7 bits, 10.9375%
	for _, sig := range []Signature{a, b, 0x8b0b4b0f0b0b5f5d, ^Signature(0)} {
		for threshold := 0; threshold <= 100; threshold++ {
			if !Similar(sig, sig, threshold) {
				t.Fatalf("%v is not similar to itself at threshold %d", sig, threshold)
			}
		}
	}
	if Similar(a, b, 90) {
		t.Fatal("7 differing bits exceed 10%")
	}
	if !Similar(a, b, 89) {
		t.Fatal("7 differing bits are within 11%")
	}
	if !Similar(a, ^a, 0) {
		t.Fatal("threshold 0 matches everything")
	}
	if Distance(a, ^a) != 64 {
		t.Fatalf("distance = %d, want 64", Distance(a, ^a))
	}
}

func TestSignatureBytesRoundTrip(t *testing.T) {
	sig := Signature(0x0123456789abcdef)
	raw := sig.Bytes()
	if raw[0] != 0x01 || raw[7] != 0xef {
		t.Fatalf("unexpected encoding %x", raw)
	}
	back, ok := FromBytes(raw)
	if !ok || back != sig {
		t.Fatalf("round trip = %v %v", back, ok)
	}
	if _, ok := FromBytes([]byte{0}); ok {
		t.Fatal("short blobs are not signatures")
	}
}

func TestComputeIsDeterministicAndScaleTolerant(t *testing.T) {
	img := smoothImage(256)
	first := Compute(img)
	if first != Compute(img) {
		t.Fatal("signature changed between runs")
	}
	if first == 0 || first == ^Signature(0) {
		t.Fatalf("degenerate signature %v", first)
	}
	scaled := Compute(smoothImage(512))
	if !Similar(first, scaled, 85) {
		t.Fatalf("rescaled copy diverged: distance %d", Distance(first, scaled))
	}
}

func TestComputeSeparatesInvertedImage(t *testing.T) {
	img := smoothImage(256)
	if Similar(Compute(img), Compute(invert(img)), 50) {
		t.Fatal("inverted image should not be similar")
	}
}

func TestFromPixelsHalfBitsSet(t *testing.T) {
	var pixels [Size * Size]float64
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			pixels[y*Size+x] = float64((x*7 + y*13) % 256)
		}
	}
	sig := FromPixels(pixels)
	ones := Distance(sig, 0)
	if ones == 0 || ones > Bits/2 {
		t.Fatalf("expected at most half of the bits above the median, got %d", ones)
	}
}

// TestFromPixelsKnownAnswer pins the signature of a fixed 32x32 matrix. The
// expected value comes from an independent float64 evaluation of the same
// row-then-column DCT with the 8x8 block compared against its median.
func TestFromPixelsKnownAnswer(t *testing.T) {
	var pixels [Size * Size]float64
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			pixels[y*Size+x] = float64((x*x*3 + y*11 + x*y) % 251)
		}
	}
	const want = Signature(0x8b0b4b0f0b0b5f5d)
	if got := FromPixels(pixels); got != want {
		t.Fatalf("FromPixels = %v, want %v (distance %d)", got, want, Distance(got, want))
	}
}

type stubFrames struct {
	img image.Image
	err error
}

func (s stubFrames) FirstFrame(context.Context, string) (image.Image, error) {
	return s.img, s.err
}

func TestHasherDecodesFromFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	if err := png.Encode(&buf, smoothImage(64)); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/img/a.png", buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/img/broken.png", []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewHasher(fs, nil)
	sig, ok, err := h.Hash(context.Background(), "/img/a.png", false)
	if err != nil || !ok {
		t.Fatalf("hash png: ok=%v err=%v", ok, err)
	}
	if sig != Compute(smoothImage(64)) {
		t.Fatal("file signature differs from in-memory signature")
	}

	if _, ok, err := h.Hash(context.Background(), "/img/broken.png", false); ok || !errors.Is(err, ErrNoPicture) {
		t.Fatalf("broken file: ok=%v err=%v", ok, err)
	}
	if _, _, err := h.Hash(context.Background(), "/img/gone.png", false); err == nil || errors.Is(err, ErrNoPicture) {
		t.Fatalf("missing file must be a read error, got %v", err)
	}
	if err := afero.WriteFile(fs, "/img/clip.mp4", []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := h.Hash(context.Background(), "/img/clip.mp4", true); ok || err != nil {
		t.Fatalf("video without extractor: ok=%v err=%v", ok, err)
	}
	if _, _, err := h.Hash(context.Background(), "/img/gone.mp4", true); err == nil || errors.Is(err, ErrNoPicture) {
		t.Fatalf("missing video must be a read error, got %v", err)
	}
}

func TestHasherUsesFrameExtractorForVideo(t *testing.T) {
	frame := smoothImage(128)
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/v/clip.mp4", []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewHasher(fs, stubFrames{img: frame})
	sig, ok, err := h.Hash(context.Background(), "/v/clip.mp4", true)
	if err != nil || !ok || sig != Compute(frame) {
		t.Fatalf("video hash: sig=%v ok=%v err=%v", sig, ok, err)
	}

	boom := errors.New("ffmpeg failed")
	h = NewHasher(fs, stubFrames{err: boom})
	if _, _, err := h.Hash(context.Background(), "/v/clip.mp4", true); !errors.Is(err, boom) || !errors.Is(err, ErrNoPicture) {
		t.Fatalf("expected extractor error, got %v", err)
	}
}
