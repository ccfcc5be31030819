// Package api is the entry point outer layers use to query and edit mappings.
//
// Service ties the capability registry, the query compiler, the search
// executor and the override resolver together and converts their results
// into transport-friendly DTOs. Query runs are tagged with a correlation id
// that flows through every log line of the run.
//
// # Key Types
//
// Service: capability listing, parse/compile, execution, effective mapping
// lookup, override and target edits, dataset import and store statistics.
//
// SearchResult/SearchRow: one ranked page with the effective view of every
// stored row.
//
// Session: a per-client wrapper where each new query cancels the previous one.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Domain values embedded in them (mappings,
// overrides, targets) keep their own snake_case encoding so they round-trip
// with the dataset files.
package api
