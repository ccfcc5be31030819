// Package resolver serves effective mappings and persists overrides.
//
// Effective views are memoized by the content hashes of the upstream row and
// the override, so a cached entry never outlives the data it was built from.
// Writes for one AniList id are serialized in process.
package resolver
