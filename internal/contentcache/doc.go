// Package contentcache persists derived file data (hashes, metadata,
// thumbnails) in SQLite keyed by absolute path and size.
//
// A cached value is valid only while the stored size matches the file's
// current size; no timestamp or content check is made. Writes made during a
// scan share one transaction that is committed when the scan finishes, so an
// interrupted scan leaves earlier cache state untouched. Reads run against the
// committed state and may proceed concurrently; writes are serialized per table.
//
// Store errors never fail a scan. Lookups that hit an error are logged and
// reported as misses so callers fall back to recomputation.
package contentcache
