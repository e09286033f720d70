// Package metadata turns raw tag dumps into canonical field values.
//
// An Extractor (the pooled exiftool processes, or the in-process fallback)
// returns tag name to value pairs. The Resolver maps those onto the canonical
// vocabulary: the first non-empty source tag wins, values are trimmed, empty
// sentinels are dropped, per-field converters normalize durations and dates,
// and optional remap tables translate raw values into display values. The
// Loader runs extraction across the worker pool and caches the raw tags per
// (path, size).
package metadata
