package phash

import (
	"fmt"
	"image"
	"math"
	"math/bits"
	"sort"

	"github.com/disintegration/imaging"
)

const (
	// Size is the edge length of the resampled image.
	Size = 32
	// BlockSize is the edge length of the low-frequency block (Size / 4).
	BlockSize = Size / 4
	// Bits is the signature length.
	Bits = BlockSize * BlockSize
)

// Signature is a perceptual hash. Bit 63 holds the first coefficient.
type Signature uint64

func (s Signature) String() string {
	return fmt.Sprintf("%016x", uint64(s))
}

// Bytes encodes the signature big-endian.
func (s Signature) Bytes() []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(uint64(s) >> (56 - 8*i))
	}
	return out
}

// FromBytes decodes a signature written by Bytes.
func FromBytes(b []byte) (Signature, bool) {
	if len(b) != 8 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return Signature(v), true
}

var cosTable = func() [Size][Size]float64 {
	var t [Size][Size]float64
	factor := math.Pi / Size
	for k := 0; k < Size; k++ {
		for n := 0; n < Size; n++ {
			t[k][n] = math.Cos(float64(k) * (float64(n) + 0.5) * factor)
		}
	}
	return t
}()

// Compute resamples img and returns its signature.
func Compute(img image.Image) Signature {
	gray := imaging.Grayscale(imaging.Resize(img, Size, Size, imaging.Lanczos))
	var pixels [Size * Size]float64
	for y := 0; y < Size; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < Size; x++ {
			pixels[y*Size+x] = float64(row[x*4+1])
		}
	}
	return FromPixels(pixels)
}

// FromPixels hashes a row-major Size x Size matrix of intensities.
func FromPixels(pixels [Size * Size]float64) Signature {
	// Row pass stores its output transposed.
	var dct0 [Size * Size]float64
	for i := 0; i < Size; i++ {
		row := pixels[i*Size : (i+1)*Size]
		for k := 0; k < Size; k++ {
			var y float64
			for n := 0; n < Size; n++ {
				y += row[n] * cosTable[k][n]
			}
			dct0[Size*k+i] = 2 * y
		}
	}

	var dct [Size * Size]float64
	for i := 0; i < Size; i++ {
		for k := 0; k < Size; k++ {
			var y float64
			for n := 0; n < Size; n++ {
				y += dct0[Size*i+n] * cosTable[k][n]
			}
			dct[Size*i+k] = 2 * y
		}
	}

	var low [Bits]float64
	for i := 0; i < BlockSize; i++ {
		for n := 0; n < BlockSize; n++ {
			low[BlockSize*i+n] = dct[Size*i+n]
		}
	}
	m := median(low[:])

	var sig uint64
	for idx, v := range low {
		if v > m {
			sig |= 1 << (Bits - 1 - idx)
		}
	}
	return Signature(sig)
}

// median sorts a copy of values; an even count averages the two middle values.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Distance returns the number of differing bits.
func Distance(a, b Signature) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Similar reports whether the share of differing bits is at most
// 100 - threshold percent. Threshold is clamped to [0, 100].
func Similar(a, b Signature, threshold int) bool {
	threshold = max(0, min(100, threshold))
	differing := float64(Distance(a, b)) * 100 / Bits
	return differing <= float64(100-threshold)
}
