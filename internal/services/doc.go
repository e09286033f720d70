// Package services defines shared utilities consumed by the scan pipeline and
// the external tool integrations beneath it.
//
// Key responsibilities:
//   - Context helpers that stamp scan session IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (bad input vs. tool failure vs. conflict) with errors.Is.
//
// Tool wrappers live in subpackages (exiftool, ffmpeg) and report failures
// through the same markers.
package services
