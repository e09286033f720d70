// Package logging assembles structured slog loggers and formatting helpers used
// across deduper.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so pipeline code can tag log lines with the scan
// session ID and stage. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
