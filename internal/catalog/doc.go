// Package catalog defines the per-file Entry record that flows through the
// scan pipeline and the directory walk that produces it.
//
// Entries are identified by absolute path. Derived fields (hashes, perceptual
// signature, metadata, thumbnail) start empty and are filled by later stages;
// once set for a given (path, size) pair they are treated as immutable.
package catalog
