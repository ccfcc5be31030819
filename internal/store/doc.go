// Package store persists mapping rows and overrides in SQLite.
//
// Each row keeps the upstream record it was imported from next to the
// effective values produced by applying the row's override, so local query
// predicates always see what users see. Local predicate trees compile to
// parameterised SQL ordered by AniList id; list and dictionary columns hold
// JSON and are searched with SQLite's json_each.
//
// The schema is embedded and versioned. A database written by a different
// schema version fails to open with ErrSchemaMismatch rather than being
// migrated in place.
package store
