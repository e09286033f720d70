package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// SampleSize is the number of bytes the partial hash reads.
const SampleSize = 1024

const copyBufferSize = 1 << 20

// FullDigest returns the SHA-256 of the whole file.
func FullDigest(fsys afero.Fs, path string, buf []byte) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// PartialDigest hashes up to SampleSize bytes starting at size/2. The result
// is the 64-bit xxhash, big-endian.
func PartialDigest(fsys afero.Fs, path string, size int64) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sample [SampleSize]byte
	n, err := f.ReadAt(sample[:], size/2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return binary.BigEndian.AppendUint64(nil, xxhash.Sum64(sample[:n])), nil
}
