package mapping

import (
	"maps"
	"slices"

	"anibridge/internal/interval"
)

// SourceCustom marks data contributed by an override.
const SourceCustom = "custom"

// Mapping is one row of the mapping database.
type Mapping struct {
	AniListID    int               `json:"anilist_id"`
	AniDBID      *int              `json:"anidb_id,omitempty"`
	TVDBID       *int              `json:"tvdb_id,omitempty"`
	TMDBShowID   *int              `json:"tmdb_show_id,omitempty"`
	TMDBMovieIDs []int             `json:"tmdb_movie_id,omitempty"`
	MALIDs       []int             `json:"mal_id,omitempty"`
	IMDbIDs      []string          `json:"imdb_id,omitempty"`
	TMDBMappings map[string]string `json:"tmdb_mappings,omitempty"`
	TVDBMappings map[string]string `json:"tvdb_mappings,omitempty"`
	Custom       bool              `json:"custom,omitempty"`
	Sources      []string          `json:"sources,omitempty"`
}

// Clone returns a deep copy.
func (m Mapping) Clone() Mapping {
	out := m
	out.AniDBID = cloneInt(m.AniDBID)
	out.TVDBID = cloneInt(m.TVDBID)
	out.TMDBShowID = cloneInt(m.TMDBShowID)
	out.TMDBMovieIDs = slices.Clone(m.TMDBMovieIDs)
	out.MALIDs = slices.Clone(m.MALIDs)
	out.IMDbIDs = slices.Clone(m.IMDbIDs)
	out.TMDBMappings = maps.Clone(m.TMDBMappings)
	out.TVDBMappings = maps.Clone(m.TVDBMappings)
	out.Sources = slices.Clone(m.Sources)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Origin tags where an effective value or edge came from.
type Origin string

const (
	OriginUpstream Origin = "upstream"
	OriginCustom   Origin = "custom"
	OriginMixed    Origin = "mixed"
	OriginDeleted  Origin = "deleted"
)

// Edge links a range of the source entry to a range of a target entry. A nil
// DestinationRange means the whole target with no episode-level mapping.
type Edge struct {
	Source           Descriptor         `json:"source"`
	Target           Descriptor         `json:"target"`
	SourceRange      interval.Interval  `json:"source_range"`
	DestinationRange *interval.Interval `json:"destination_range"`
	Origin           Origin             `json:"origin"`
}

// Target groups the edges pointing at one descriptor. A deleted target has
// no edges.
type Target struct {
	Descriptor Descriptor `json:"descriptor"`
	Origin     Origin     `json:"origin"`
	Edges      []Edge     `json:"edges"`
}

// EdgeDelta sets or clears one source range on a target. A nil Destination
// deletes the range.
type EdgeDelta struct {
	Source      interval.Interval  `json:"source_range"`
	Destination *interval.Interval `json:"destination_range"`
}

// TargetDelta is the set of edge changes for one target.
type TargetDelta struct {
	Target Descriptor  `json:"target"`
	Edges  []EdgeDelta `json:"edges"`
}

// Effective is the UI-facing view of one entry: the resolved row, where each
// field came from, and the reconciled target edges.
type Effective struct {
	Mapping      Mapping           `json:"mapping"`
	Upstream     *Mapping          `json:"upstream,omitempty"`
	Override     *Override         `json:"override,omitempty"`
	FieldOrigins map[string]Origin `json:"field_origins"`
	Targets      []Target          `json:"targets"`
}
