package anilist

import (
	"slices"
	"strconv"
	"strings"
)

// IntFilter constrains a numeric media field. Greater and Lesser are
// exclusive, matching AniList's _greater and _lesser arguments.
type IntFilter struct {
	Eq      *int
	Greater *int
	Lesser  *int
}

// IsZero reports whether the filter constrains nothing.
func (f IntFilter) IsZero() bool {
	return f.Eq == nil && f.Greater == nil && f.Lesser == nil
}

// Query is one AniList media search. Every set field narrows the result; list
// fields match any of their values.
type Query struct {
	Search     string
	Formats    []string
	Statuses   []string
	Season     string
	Genres     []string
	Tags       []string
	Year       IntFilter
	Episodes   IntFilter
	Duration   IntFilter
	Score      IntFilter
	Popularity IntFilter
}

// IsZero reports whether q has no filters.
func (q Query) IsZero() bool {
	return q.Search == "" && len(q.Formats) == 0 && len(q.Statuses) == 0 &&
		q.Season == "" && len(q.Genres) == 0 && len(q.Tags) == 0 &&
		q.Year.IsZero() && q.Episodes.IsZero() && q.Duration.IsZero() &&
		q.Score.IsZero() && q.Popularity.IsZero()
}

// CacheKey returns a stable string representation for caching.
func (q Query) CacheKey() string {
	var b strings.Builder
	write := func(name string, values ...string) {
		if len(values) == 0 {
			return
		}
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strings.Join(sorted, ","))
		b.WriteString("|")
	}
	writeInt := func(name string, f IntFilter) {
		if f.Eq != nil {
			write(name+".eq", strconv.Itoa(*f.Eq))
		}
		if f.Greater != nil {
			write(name+".gt", strconv.Itoa(*f.Greater))
		}
		if f.Lesser != nil {
			write(name+".lt", strconv.Itoa(*f.Lesser))
		}
	}
	if q.Search != "" {
		write("search", strings.ToLower(strings.TrimSpace(q.Search)))
	}
	write("format", q.Formats...)
	write("status", q.Statuses...)
	if q.Season != "" {
		write("season", q.Season)
	}
	write("genre", q.Genres...)
	write("tag", q.Tags...)
	writeInt("year", q.Year)
	writeInt("episodes", q.Episodes)
	writeInt("duration", q.Duration)
	writeInt("score", q.Score)
	writeInt("popularity", q.Popularity)
	return b.String()
}

func (q Query) variables() map[string]any {
	vars := map[string]any{}
	if q.Search != "" {
		vars["search"] = q.Search
		vars["sort"] = []string{"SEARCH_MATCH"}
	} else {
		vars["sort"] = []string{"ID"}
	}
	if len(q.Formats) > 0 {
		vars["formatIn"] = q.Formats
	}
	if len(q.Statuses) > 0 {
		vars["statusIn"] = q.Statuses
	}
	if q.Season != "" {
		vars["season"] = q.Season
	}
	if len(q.Genres) > 0 {
		vars["genreIn"] = q.Genres
	}
	if len(q.Tags) > 0 {
		vars["tagIn"] = q.Tags
	}

	if q.Year.Eq != nil {
		vars["seasonYear"] = *q.Year.Eq
	}
	// Year bounds go through the fuzzy start date (YYYYMMDD).
	if q.Year.Greater != nil {
		vars["startGreater"] = *q.Year.Greater*10000 + 9999
	}
	if q.Year.Lesser != nil {
		vars["startLesser"] = *q.Year.Lesser * 10000
	}
	setInt := func(prefix string, f IntFilter) {
		if f.Eq != nil {
			vars[prefix] = *f.Eq
		}
		if f.Greater != nil {
			vars[prefix+"Greater"] = *f.Greater
		}
		if f.Lesser != nil {
			vars[prefix+"Lesser"] = *f.Lesser
		}
	}
	setInt("episodes", q.Episodes)
	setInt("duration", q.Duration)
	setInt("averageScore", q.Score)
	setInt("popularity", q.Popularity)
	return vars
}
