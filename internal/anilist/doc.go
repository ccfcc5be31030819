// Package anilist provides the minimal AniList GraphQL client used by
// mapping search.
//
// It exposes a paged media search that accepts the filters the query
// language can push down (title, format, status, season, numeric bounds,
// genres, tags), batched metadata lookups by AniList id, and the genre and
// tag collections that turn those fields into closed enums. Options allow
// tests to point the client at an httptest server.
package anilist
