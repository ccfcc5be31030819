package mapping

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"anibridge/internal/interval"
)

// wholeEntry is the source range used for edges that cover an entire entry.
var wholeEntry = interval.Interval{Lo: 1, Hi: interval.Open}

// SourceDescriptor returns the AniList descriptor edges of m start from.
// Entries whose only targets are movies use the movie scope.
func SourceDescriptor(m Mapping) Descriptor {
	return idDescriptor(ProviderAniList, m.AniListID, sourceScope(m))
}

func sourceScope(m Mapping) string {
	tv := m.TVDBID != nil || m.TMDBShowID != nil || len(m.TVDBMappings) > 0 || len(m.TMDBMappings) > 0
	movie := len(m.TMDBMovieIDs) > 0
	if movie && !tv {
		return ScopeMovie
	}
	return ScopeTV
}

// BuildEdges derives the edges m implies, all tagged with origin. Season
// patterns number source episodes consecutively across seasons in season
// order. Patterns or season keys that do not parse are skipped.
func BuildEdges(m Mapping, origin Origin) []Edge {
	src := SourceDescriptor(m)
	var edges []Edge
	whole := func(target Descriptor) {
		edges = append(edges, Edge{Source: src, Target: target, SourceRange: wholeEntry, Origin: origin})
	}

	if m.AniDBID != nil {
		whole(idDescriptor(ProviderAniDB, *m.AniDBID, src.Scope))
	}
	for _, id := range m.MALIDs {
		whole(idDescriptor(ProviderMAL, id, src.Scope))
	}
	for _, id := range m.TMDBMovieIDs {
		whole(idDescriptor(ProviderTMDBMovie, id, ScopeMovie))
	}
	for _, id := range m.IMDbIDs {
		whole(Descriptor{Provider: ProviderIMDb, EntryID: id, Scope: src.Scope})
	}
	edges = append(edges, seasonEdges(src, ProviderTVDB, m.TVDBID, m.TVDBMappings, origin)...)
	edges = append(edges, seasonEdges(src, ProviderTMDBShow, m.TMDBShowID, m.TMDBMappings, origin)...)
	return edges
}

func seasonEdges(src Descriptor, provider string, showID *int, seasons map[string]string, origin Origin) []Edge {
	if showID == nil {
		return nil
	}
	if len(seasons) == 0 {
		return []Edge{{
			Source:      src,
			Target:      idDescriptor(provider, *showID, ScopeTV),
			SourceRange: wholeEntry,
			Origin:      origin,
		}}
	}

	type season struct {
		number  int
		pattern interval.Pattern
	}
	parsed := make([]season, 0, len(seasons))
	for key, text := range seasons {
		n, err := interval.ParseSeasonKey(key)
		if err != nil {
			continue
		}
		p, err := interval.ParsePattern(text)
		if err != nil {
			continue
		}
		parsed = append(parsed, season{number: n, pattern: p})
	}
	slices.SortFunc(parsed, func(a, b season) int { return cmp.Compare(a.number, b.number) })

	var edges []Edge
	cursor := 1
	for _, s := range parsed {
		target := idDescriptor(provider, *showID, interval.SeasonKey(s.number))
		if s.pattern.Whole() {
			edges = append(edges, Edge{
				Source:      src,
				Target:      target,
				SourceRange: interval.Interval{Lo: cursor, Hi: interval.Open},
				Origin:      origin,
			})
			continue
		}
		for _, seg := range s.pattern.Segments {
			dst := seg.Range
			if dst.IsOpen() {
				edges = append(edges, Edge{
					Source:           src,
					Target:           target,
					SourceRange:      interval.Interval{Lo: cursor, Hi: interval.Open},
					DestinationRange: &dst,
					Origin:           origin,
				})
				continue
			}
			n := sourceLen(dst.Len(), seg.Ratio)
			edges = append(edges, Edge{
				Source:           src,
				Target:           target,
				SourceRange:      interval.Interval{Lo: cursor, Hi: cursor + n - 1},
				DestinationRange: &dst,
				Origin:           origin,
			})
			cursor += n
		}
	}
	return edges
}

// sourceLen converts a destination length to a source length. A positive
// ratio r means r source episodes per destination episode; a negative one
// means |r| destination episodes per source episode.
func sourceLen(destLen, ratio int) int {
	switch {
	case ratio > 1:
		return destLen * ratio
	case ratio < 0:
		r := -ratio
		return max((destLen+r-1)/r, 1)
	}
	return destLen
}

// DeltaError reports a target delta that cannot be applied.
type DeltaError struct {
	Target Descriptor
	Reason string
}

func (e *DeltaError) Error() string {
	return fmt.Sprintf("target %s: %s", e.Target, e.Reason)
}

type targetState struct {
	descriptor  Descriptor
	edges       []Edge
	hadUpstream bool
}

// ApplyTargetDeltas layers deltas over existing edges from source and
// returns the resulting targets sorted by descriptor. Deletions within a
// delta run before upserts. A target that loses every edge is reported as
// deleted when it had upstream edges and dropped otherwise. Targets no delta
// touches keep their existing edges.
func ApplyTargetDeltas(source Descriptor, existing []Edge, deltas []TargetDelta) ([]Target, error) {
	states := make(map[Descriptor]*targetState)
	get := func(d Descriptor) *targetState {
		st, ok := states[d]
		if !ok {
			st = &targetState{descriptor: d}
			states[d] = st
		}
		return st
	}
	for _, e := range existing {
		st := get(e.Target)
		st.edges = append(st.edges, e)
		if e.Origin == OriginUpstream {
			st.hadUpstream = true
		}
	}

	for _, delta := range deltas {
		target, err := validateDelta(delta)
		if err != nil {
			return nil, &DeltaError{Target: delta.Target, Reason: err.Error()}
		}
		st := get(target)
		for _, ed := range delta.Edges {
			if ed.Destination == nil {
				st.edges = slices.DeleteFunc(st.edges, func(e Edge) bool { return e.SourceRange == ed.Source })
			}
		}
		for _, ed := range delta.Edges {
			if ed.Destination == nil {
				continue
			}
			dst := *ed.Destination
			edge := Edge{
				Source:           source,
				Target:           target,
				SourceRange:      ed.Source,
				DestinationRange: &dst,
				Origin:           OriginCustom,
			}
			if i := slices.IndexFunc(st.edges, func(e Edge) bool { return e.SourceRange == ed.Source }); i >= 0 {
				st.edges[i] = edge
				continue
			}
			for _, e := range st.edges {
				if e.SourceRange.Overlaps(ed.Source) {
					return nil, &DeltaError{
						Target: target,
						Reason: fmt.Sprintf("source range %s overlaps existing range %s", ed.Source, e.SourceRange),
					}
				}
			}
			st.edges = append(st.edges, edge)
		}
	}

	out := make([]Target, 0, len(states))
	for _, st := range states {
		if len(st.edges) == 0 {
			if st.hadUpstream {
				out = append(out, Target{Descriptor: st.descriptor, Origin: OriginDeleted})
			}
			continue
		}
		edges := slices.Clone(st.edges)
		slices.SortFunc(edges, func(a, b Edge) int { return cmp.Compare(a.SourceRange.Lo, b.SourceRange.Lo) })
		out = append(out, Target{Descriptor: st.descriptor, Origin: targetOrigin(edges), Edges: edges})
	}
	slices.SortFunc(out, func(a, b Target) int { return compareDescriptors(a.Descriptor, b.Descriptor) })
	return out, nil
}

func targetOrigin(edges []Edge) Origin {
	var upstream, custom bool
	for _, e := range edges {
		switch e.Origin {
		case OriginUpstream:
			upstream = true
		default:
			custom = true
		}
	}
	switch {
	case upstream && custom:
		return OriginMixed
	case custom:
		return OriginCustom
	}
	return OriginUpstream
}

func compareDescriptors(a, b Descriptor) int {
	if c := cmp.Compare(a.Provider, b.Provider); c != 0 {
		return c
	}
	if c := compareNumeric(a.EntryID, b.EntryID); c != 0 {
		return c
	}
	return compareNumeric(a.Scope, b.Scope)
}

// compareNumeric orders "s2" before "s10" and "9" before "10".
func compareNumeric(a, b string) int {
	an, aerr := strconv.Atoi(trimSeason(a))
	bn, berr := strconv.Atoi(trimSeason(b))
	if aerr == nil && berr == nil && len(a)-len(trimSeason(a)) == len(b)-len(trimSeason(b)) {
		return cmp.Compare(an, bn)
	}
	return cmp.Compare(a, b)
}

func trimSeason(s string) string {
	if len(s) > 1 && s[0] == 's' {
		return s[1:]
	}
	return s
}

// FieldDeltas expresses the edge changes caused by field-level overrides as
// target deltas: upstream edges that disappear are deleted and edges that
// only the resolved row produces are added.
func FieldDeltas(upstream, resolved Mapping) []TargetDelta {
	before := BuildEdges(upstream, OriginUpstream)
	after := BuildEdges(resolved, OriginCustom)

	key := func(e Edge) string {
		dst := "*"
		if e.DestinationRange != nil {
			dst = e.DestinationRange.String()
		}
		return e.Target.String() + "|" + e.SourceRange.String() + "|" + dst
	}
	afterKeys := make(map[string]bool, len(after))
	for _, e := range after {
		afterKeys[key(e)] = true
	}
	beforeKeys := make(map[string]bool, len(before))
	for _, e := range before {
		beforeKeys[key(e)] = true
	}

	var order []Descriptor
	byTarget := make(map[Descriptor]*TargetDelta)
	add := func(target Descriptor, ed EdgeDelta) {
		d, ok := byTarget[target]
		if !ok {
			d = &TargetDelta{Target: target}
			byTarget[target] = d
			order = append(order, target)
		}
		d.Edges = append(d.Edges, ed)
	}
	for _, e := range before {
		if !afterKeys[key(e)] {
			add(e.Target, EdgeDelta{Source: e.SourceRange})
		}
	}
	for _, e := range after {
		if beforeKeys[key(e)] {
			continue
		}
		dst := wholeEntry
		if e.DestinationRange != nil {
			dst = *e.DestinationRange
		}
		add(e.Target, EdgeDelta{Source: e.SourceRange, Destination: &dst})
	}

	out := make([]TargetDelta, 0, len(order))
	for _, d := range order {
		out = append(out, dedupeDelta(*byTarget[d]))
	}
	return out
}

// dedupeDelta keeps the last instruction per source range so a deletion
// followed by a re-add of the same range becomes a single upsert.
func dedupeDelta(d TargetDelta) TargetDelta {
	last := make(map[interval.Interval]int, len(d.Edges))
	for i, e := range d.Edges {
		last[e.Source] = i
	}
	kept := make([]EdgeDelta, 0, len(last))
	for i, e := range d.Edges {
		if last[e.Source] == i {
			kept = append(kept, e)
		}
	}
	d.Edges = kept
	return d
}

// EffectiveTargets reconciles the upstream edges of upstream with the field
// overrides and explicit target deltas of o.
func EffectiveTargets(upstream Mapping, o Override) ([]Target, error) {
	resolved := Resolve(upstream, o)
	src := SourceDescriptor(upstream)
	deltas := FieldDeltas(upstream, resolved)
	deltas = append(deltas, o.Targets...)
	return ApplyTargetDeltas(src, BuildEdges(upstream, OriginUpstream), deltas)
}
