// Package dataset loads upstream mapping files and imports them into the
// mapping store.
//
// Files are JSON or YAML objects keyed by AniList id. Id fields accept a
// single value or a list; "$includes" pulls in sibling files that the
// including file then overrides entry by entry; "$meta" is ignored. Every
// row records the files that contributed to it in its sources.
//
// Imports hold an exclusive file lock in the data directory so two imports
// never interleave their writes.
package dataset
