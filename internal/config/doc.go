// Package config loads, normalizes, and validates deduper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the cache
// location, scan filters, metadata tooling, and rename policies so the CLI can
// discover every knob in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lower-cased enum values, and clear validation errors.
package config
