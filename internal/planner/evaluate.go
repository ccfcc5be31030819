package planner

import (
	"slices"
	"strings"

	"anibridge/internal/anilist"
	"anibridge/internal/capability"
	"anibridge/internal/mapping"
	"anibridge/internal/querylang"
	"anibridge/internal/textutil"
)

// Truth is a three-valued logic result.
type Truth uint8

const (
	False Truth = iota
	True
	Unknown
)

func (t Truth) String() string {
	switch t {
	case True:
		return "true"
	case Unknown:
		return "unknown"
	}
	return "false"
}

func truth(b bool) Truth {
	if b {
		return True
	}
	return False
}

// Facts are everything known about one row. Media is nil when AniList
// metadata is unavailable, which makes every remote leaf Unknown.
type Facts struct {
	Mapping mapping.Mapping
	Media   *anilist.Media
}

// Evaluate evaluates n against f with Kleene logic. A nil node is True.
func Evaluate(n querylang.Node, f Facts) Truth {
	switch v := n.(type) {
	case nil:
		return True
	case querylang.Const:
		return truth(v.Value)
	case *querylang.And:
		out := True
		for _, c := range v.Children {
			switch Evaluate(c, f) {
			case False:
				return False
			case Unknown:
				out = Unknown
			}
		}
		return out
	case *querylang.Or:
		out := False
		for _, c := range v.Children {
			switch Evaluate(c, f) {
			case True:
				return True
			case Unknown:
				out = Unknown
			}
		}
		return out
	case *querylang.Not:
		switch Evaluate(v.Child, f) {
		case True:
			return False
		case False:
			return True
		}
		return Unknown
	case *querylang.Title:
		if f.Media == nil {
			return Unknown
		}
		return truth(textutil.Matches(v.Text, f.Media.Titles()))
	case *querylang.Predicate:
		if v.Field.Domain() == capability.DomainRemote {
			if f.Media == nil {
				return Unknown
			}
			return truth(matchRemote(v, f.Media))
		}
		return truth(MatchLocal(v, f.Mapping))
	}
	return False
}

// Matches reports whether n is definitely true for f.
func Matches(n querylang.Node, f Facts) bool {
	return Evaluate(n, f) == True
}

// MatchLocal evaluates a local predicate against a mapping row.
func MatchLocal(p *querylang.Predicate, m mapping.Mapping) bool {
	switch p.Field {
	case capability.FieldAniList:
		return matchInts(p, []int{m.AniListID})
	case capability.FieldAniDB:
		return matchInts(p, optional(m.AniDBID))
	case capability.FieldTVDB:
		return matchInts(p, optional(m.TVDBID))
	case capability.FieldTMDBShow:
		return matchInts(p, optional(m.TMDBShowID))
	case capability.FieldTMDBMovie:
		return matchInts(p, m.TMDBMovieIDs)
	case capability.FieldMAL:
		return matchInts(p, m.MALIDs)
	case capability.FieldIMDb:
		return matchStrings(p, m.IMDbIDs)
	case capability.FieldSource:
		return matchStrings(p, m.Sources)
	case capability.FieldTMDBMappings:
		return matchDict(p, m.TMDBMappings)
	case capability.FieldTVDBMappings:
		return matchDict(p, m.TVDBMappings)
	case capability.FieldCustom:
		return len(p.Values) == 1 && (p.Values[0] == "true") == m.Custom
	}
	return false
}

func matchRemote(p *querylang.Predicate, media *anilist.Media) bool {
	switch p.Field {
	case capability.FieldTitle:
		for _, v := range p.Values {
			if textutil.Matches(v, media.Titles()) {
				return true
			}
		}
		return false
	case capability.FieldFormat:
		return matchStrings(p, nonEmpty(media.Format))
	case capability.FieldStatus:
		return matchStrings(p, nonEmpty(media.Status))
	case capability.FieldSeason:
		return matchStrings(p, nonEmpty(media.Season))
	case capability.FieldYear:
		return matchInts(p, optional(media.SeasonYear))
	case capability.FieldEpisodes:
		return matchInts(p, optional(media.Episodes))
	case capability.FieldDuration:
		return matchInts(p, optional(media.Duration))
	case capability.FieldScore:
		return matchInts(p, optional(media.AverageScore))
	case capability.FieldPopularity:
		return matchInts(p, optional(media.Popularity))
	case capability.FieldGenre:
		return matchStrings(p, media.Genres)
	case capability.FieldTag:
		return matchStrings(p, media.TagNames())
	}
	return false
}

func optional(v *int) []int {
	if v == nil {
		return nil
	}
	return []int{*v}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// matchInts is true when any row value satisfies the predicate.
func matchInts(p *querylang.Predicate, values []int) bool {
	if p.Op == capability.OpHas {
		return len(values) > 0
	}
	for _, v := range values {
		if intMatches(p, int64(v)) {
			return true
		}
	}
	return false
}

func intMatches(p *querylang.Predicate, v int64) bool {
	switch p.Op {
	case capability.OpEq, capability.OpIn:
		return slices.Contains(p.Ints, v)
	case capability.OpRange:
		return p.Ints[0] <= v && v <= p.Ints[1]
	case capability.OpLt:
		return v < p.Ints[0]
	case capability.OpLte:
		return v <= p.Ints[0]
	case capability.OpGt:
		return v > p.Ints[0]
	case capability.OpGte:
		return v >= p.Ints[0]
	}
	return false
}

// matchStrings compares case-insensitively. Wildcards use * and ?.
func matchStrings(p *querylang.Predicate, values []string) bool {
	if p.Op == capability.OpHas {
		return len(values) > 0
	}
	for _, v := range values {
		for _, want := range p.Values {
			if stringMatches(p.Op, want, v) {
				return true
			}
		}
	}
	return false
}

func stringMatches(op capability.Operator, pattern, value string) bool {
	if op == capability.OpWildcard {
		return querylang.MatchWildcard(pattern, value)
	}
	return querylang.FoldEqual(pattern, value)
}

// matchDict tests season dictionaries. "s1" matches a key; "s1=e1-e12"
// matches a key with exactly that pattern. Wildcards apply to both parts.
func matchDict(p *querylang.Predicate, dict map[string]string) bool {
	if p.Op == capability.OpHas {
		return len(dict) > 0
	}
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, want := range p.Values {
		wantKey, wantValue, hasValue := strings.Cut(want, "=")
		for _, k := range keys {
			if !stringMatches(p.Op, wantKey, k) {
				continue
			}
			if !hasValue || stringMatches(p.Op, wantValue, dict[k]) {
				return true
			}
		}
	}
	return false
}
