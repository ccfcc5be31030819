// Package config loads, normalizes, and validates anibridge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANILIST_TOKEN. The Config type centralizes every knob the CLI and the
// search service need: where the mapping database lives, how AniList is
// reached, how wide remote fan-out may go, and how logs are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped limits, and clear validation errors.
package config
