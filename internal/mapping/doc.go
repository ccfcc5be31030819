// Package mapping holds the cross-provider mapping model and the override
// resolver.
//
// A Mapping is one upstream row keyed by AniList id. An Override is a sparse
// per-field patch where each field is omitted, forced to null, or replaced.
// Resolve merges the two into the effective row; it is pure so results can be
// memoized by content hash. BuildEdges derives the range-annotated target
// edges a mapping implies, and ApplyTargetDeltas layers custom edge deltas on
// top of them, tagging every target with its origin.
package mapping
