// Package scan wires the walk, cache, hashing, grouping, and correlation
// layers into the operations the CLI exposes.
//
// A Service owns one open content cache for its lifetime. Every operation
// that writes to the cache runs inside a single cache transaction which is
// committed on success and rolled back on error.
package scan
