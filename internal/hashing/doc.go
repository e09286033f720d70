// Package hashing computes full, partial, and perceptual hashes for catalog
// entries on a bounded worker pool.
//
// Every task first consults the content cache; a hit fills the entry without
// scheduling any work. Read failures are returned to the caller rather than
// skipped. Perceptual failures only mean the entry carries no signature.
//
// Exact-duplicate preparation hashes a 1024-byte sample from the middle of
// every candidate, then pays for a full digest only on files that share a
// (size, sample) bucket with at least one other file.
package hashing
