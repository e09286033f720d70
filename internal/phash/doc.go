// Package phash computes 64-bit DCT perceptual signatures and compares them.
//
// An image is resampled to 32x32 grayscale with a Lanczos filter, transformed
// with a separable type-II DCT (rows, then columns, each scaled by 2 and not
// orthonormalized), and the top-left 8x8 low-frequency block is thresholded
// against its median. Video files are reduced to their first frame by an
// external extractor before hashing.
package phash
