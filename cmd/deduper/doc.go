// Package main hosts the deduper CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, opens the content
// cache through internal/scan, and renders results as tables, JSON, or YAML.
// Destructive commands print their plan and only act when confirmed with
// --yes.
package main
