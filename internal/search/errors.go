package search

import "errors"

var (
	// ErrRemoteUnavailable wraps AniList failures in strict mode.
	ErrRemoteUnavailable = errors.New("anilist unavailable")
	// ErrSuperseded is returned for a session run replaced by a newer one.
	ErrSuperseded = errors.New("query superseded by a newer query")
)
