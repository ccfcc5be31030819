package search

import (
	"anibridge/internal/anilist"
	"anibridge/internal/capability"
	"anibridge/internal/querylang"
)

// remoteQuery is one AniList search plus the literals every returned media
// item must still satisfy. A title pushed as the search term is not
// re-checked; AniList's own title matching is authoritative.
type remoteQuery struct {
	query anilist.Query
	check querylang.Node
}

// broad reports whether the search carries no AniList-side filter at all.
func (r remoteQuery) broad() bool {
	return r.query.IsZero()
}

func translate(c conjunction) remoteQuery {
	var q anilist.Query
	var check conjunction
	for _, lit := range c {
		switch v := lit.(type) {
		case *querylang.Title:
			if q.Search == "" {
				q.Search = v.Text
				continue
			}
		case *querylang.Predicate:
			if v.Field == capability.FieldTitle && v.Op == capability.OpEq && len(v.Values) == 1 && q.Search == "" {
				q.Search = v.Values[0]
				continue
			}
			applyPredicate(&q, v)
		}
		check = append(check, lit)
	}
	return remoteQuery{query: q, check: check.node()}
}

// applyPredicate narrows q with p where AniList has a matching argument and
// the slot is still free. The predicate is re-checked either way.
func applyPredicate(q *anilist.Query, p *querylang.Predicate) {
	switch p.Field {
	case capability.FieldFormat:
		if len(q.Formats) == 0 {
			q.Formats = append([]string(nil), p.Values...)
		}
	case capability.FieldStatus:
		if len(q.Statuses) == 0 {
			q.Statuses = append([]string(nil), p.Values...)
		}
	case capability.FieldSeason:
		if q.Season == "" && len(p.Values) == 1 {
			q.Season = p.Values[0]
		}
	case capability.FieldGenre:
		if len(q.Genres) == 0 && len(p.Values) == 1 && p.Op == capability.OpEq {
			q.Genres = []string{p.Values[0]}
		}
	case capability.FieldTag:
		if len(q.Tags) == 0 && len(p.Values) == 1 && p.Op == capability.OpEq {
			q.Tags = []string{p.Values[0]}
		}
	case capability.FieldYear:
		applyInt(&q.Year, p)
	case capability.FieldEpisodes:
		applyInt(&q.Episodes, p)
	case capability.FieldDuration:
		applyInt(&q.Duration, p)
	case capability.FieldScore:
		applyInt(&q.Score, p)
	case capability.FieldPopularity:
		applyInt(&q.Popularity, p)
	}
}

// applyInt converts inclusive comparisons into AniList's exclusive bounds.
func applyInt(f *anilist.IntFilter, p *querylang.Predicate) {
	if !f.IsZero() || len(p.Ints) == 0 {
		return
	}
	n := int(p.Ints[0])
	switch p.Op {
	case capability.OpEq:
		f.Eq = &n
	case capability.OpIn:
		if len(p.Ints) == 1 {
			f.Eq = &n
		}
	case capability.OpRange:
		lo, hi := n-1, int(p.Ints[1])+1
		f.Greater, f.Lesser = &lo, &hi
	case capability.OpLt:
		f.Lesser = &n
	case capability.OpLte:
		bound := n + 1
		f.Lesser = &bound
	case capability.OpGt:
		f.Greater = &n
	case capability.OpGte:
		bound := n - 1
		f.Greater = &bound
	}
}
