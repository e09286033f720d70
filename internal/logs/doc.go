// Package logs reads back the deduper log file.
//
// Reads use bounded memory: only the requested number of trailing lines is
// kept while the file is scanned.
package logs
