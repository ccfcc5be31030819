// Package search executes compiled query plans against the mapping store and
// AniList.
//
// Local plans run as SQL. Remote plans are rewritten into disjunctive normal
// form and each conjunction becomes one AniList search, fanned out with a
// bounded errgroup; every returned media item is re-checked against the
// conjunction so approximate AniList filters never leak false positives.
// Pushdown plans intersect the two candidate sets. Superset plans fetch
// metadata for a capped local candidate set and evaluate the whole tree per
// row with three-valued logic, so rows whose metadata is unavailable are
// excluded rather than guessed.
//
// Remote failures degrade to warnings unless strict mode is on, in which
// case they surface as ErrRemoteUnavailable. A Session cancels the previous
// run when a new query starts and reports ErrSuperseded for it.
package search
