// Package capability declares the searchable fields of the mapping query
// language.
//
// Each field is identified by a closed FieldID enum. The enum knows whether a
// field lives in the local mapping store or must be answered by AniList, and
// how its values are shaped (scalar, list, or season dictionary). A Registry
// layers the operator set, value type, aliases, and enum values on top; the
// parser resolves names through it and the planner checks operators against
// it.
//
// Registries are immutable once built. Cache wraps a Loader with a
// single-flight memoized getter so concurrent first callers share one load,
// and Invalidate forces the next Get to rebuild (for example after AniList
// publishes new genres).
package capability
