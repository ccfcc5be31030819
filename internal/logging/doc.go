// Package logging assembles structured slog loggers and formatting helpers used
// across anibridge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so query and override code can
// tag log lines with correlation ids and AniList ids. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
