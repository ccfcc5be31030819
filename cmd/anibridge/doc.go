// Package main hosts the anibridge CLI entrypoint and command graph.
//
// The Cobra-based command tree exposes mapping queries, effective mapping
// lookups, override and target edits, dataset import, and configuration
// scaffolding. It centralizes configuration resolution and logging setup so
// subcommands only wire flags to internal/api.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through a dedicated command or flag.
package main
