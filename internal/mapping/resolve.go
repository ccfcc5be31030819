package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
)

// Resolve applies o to upstream field by field. It never mutates its inputs
// and depends on nothing else, so equal inputs give equal outputs.
func Resolve(upstream Mapping, o Override) Mapping {
	out := upstream.Clone()
	out.AniDBID = resolveScalar(out.AniDBID, o.AniDBID)
	out.TVDBID = resolveScalar(out.TVDBID, o.TVDBID)
	out.TMDBShowID = resolveScalar(out.TMDBShowID, o.TMDBShowID)
	out.TMDBMovieIDs = resolveSlice(out.TMDBMovieIDs, o.TMDBMovieIDs)
	out.MALIDs = resolveSlice(out.MALIDs, o.MALIDs)
	out.IMDbIDs = resolveSlice(out.IMDbIDs, o.IMDbIDs)
	out.TMDBMappings = resolveDict(out.TMDBMappings, o.TMDBMappings)
	out.TVDBMappings = resolveDict(out.TVDBMappings, o.TVDBMappings)
	if o.HasFieldChanges() && !slices.Contains(out.Sources, SourceCustom) {
		out.Sources = append(out.Sources, SourceCustom)
	}
	return out
}

func resolveScalar(current *int, f Field[int]) *int {
	switch f.Mode {
	case ModeNull:
		return nil
	case ModeValue:
		return IntPtr(f.Value)
	}
	return current
}

func resolveSlice[T any](current []T, f Field[[]T]) []T {
	switch f.Mode {
	case ModeNull:
		return nil
	case ModeValue:
		if len(f.Value) == 0 {
			return nil
		}
		return slices.Clone(f.Value)
	}
	return current
}

// resolveDict replaces the whole season map; keys are never merged.
func resolveDict(current map[string]string, f Field[map[string]string]) map[string]string {
	switch f.Mode {
	case ModeNull:
		return nil
	case ModeValue:
		if len(f.Value) == 0 {
			return nil
		}
		return maps.Clone(f.Value)
	}
	return current
}

// FieldOrigins reports, for every field that ends up populated or was
// explicitly cleared, whether it came from upstream, from the override, or
// was deleted by it.
func FieldOrigins(upstream Mapping, o Override) map[string]Origin {
	present := map[string]bool{
		FieldAniDBID:      upstream.AniDBID != nil,
		FieldTVDBID:       upstream.TVDBID != nil,
		FieldTMDBShowID:   upstream.TMDBShowID != nil,
		FieldTMDBMovieIDs: len(upstream.TMDBMovieIDs) > 0,
		FieldMALIDs:       len(upstream.MALIDs) > 0,
		FieldIMDbIDs:      len(upstream.IMDbIDs) > 0,
		FieldTMDBMappings: len(upstream.TMDBMappings) > 0,
		FieldTVDBMappings: len(upstream.TVDBMappings) > 0,
	}
	out := make(map[string]Origin)
	for field, mode := range o.Modes() {
		switch mode {
		case ModeValue:
			out[field] = OriginCustom
		case ModeNull:
			out[field] = OriginDeleted
		default:
			if present[field] {
				out[field] = OriginUpstream
			}
		}
	}
	return out
}

// Hash returns a stable content hash of v. encoding/json sorts map keys, so
// equal values hash equally.
func Hash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewEffective resolves upstream with o and reconciles target edges.
func NewEffective(upstream Mapping, o Override) (*Effective, error) {
	resolved := Resolve(upstream, o)
	targets, err := EffectiveTargets(upstream, o)
	if err != nil {
		return nil, err
	}
	up := upstream.Clone()
	eff := &Effective{
		Mapping:      resolved,
		Upstream:     &up,
		FieldOrigins: FieldOrigins(upstream, o),
		Targets:      targets,
	}
	if !o.IsEmpty() {
		ov := o
		eff.Override = &ov
	}
	return eff, nil
}
