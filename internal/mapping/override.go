package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"anibridge/internal/interval"
)

// Mode selects how an override field combines with upstream data.
type Mode uint8

const (
	// ModeOmit inherits the upstream value.
	ModeOmit Mode = iota
	// ModeNull forces the field absent.
	ModeNull
	// ModeValue replaces the field.
	ModeValue
)

func (m Mode) String() string {
	switch m {
	case ModeNull:
		return "null"
	case ModeValue:
		return "value"
	default:
		return "omit"
	}
}

// Field is one override slot. In JSON a missing key is ModeOmit, an explicit
// null is ModeNull, and anything else is ModeValue.
type Field[T any] struct {
	Mode  Mode
	Value T
}

// Omit returns an inheriting field.
func Omit[T any]() Field[T] { return Field[T]{} }

// Null returns a field that clears the upstream value.
func Null[T any]() Field[T] { return Field[T]{Mode: ModeNull} }

// Set returns a field that replaces the upstream value.
func Set[T any](v T) Field[T] { return Field[T]{Mode: ModeValue, Value: v} }

// IsZero lets `omitzero` drop omitted fields when encoding.
func (f Field[T]) IsZero() bool { return f.Mode == ModeOmit }

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.Mode != ModeValue {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

// Override is a sparse per-entry patch over upstream mapping data. Season
// dictionaries are replaced whole; a value here is the complete new map.
type Override struct {
	AniDBID      Field[int]               `json:"anidb_id,omitzero"`
	TVDBID       Field[int]               `json:"tvdb_id,omitzero"`
	TMDBShowID   Field[int]               `json:"tmdb_show_id,omitzero"`
	TMDBMovieIDs Field[[]int]             `json:"tmdb_movie_id,omitzero"`
	MALIDs       Field[[]int]             `json:"mal_id,omitzero"`
	IMDbIDs      Field[[]string]          `json:"imdb_id,omitzero"`
	TMDBMappings Field[map[string]string] `json:"tmdb_mappings,omitzero"`
	TVDBMappings Field[map[string]string] `json:"tvdb_mappings,omitzero"`
	Targets      []TargetDelta            `json:"targets,omitempty"`
}

// Override field names, matching the mapping JSON keys.
const (
	FieldAniDBID      = "anidb_id"
	FieldTVDBID       = "tvdb_id"
	FieldTMDBShowID   = "tmdb_show_id"
	FieldTMDBMovieIDs = "tmdb_movie_id"
	FieldMALIDs       = "mal_id"
	FieldIMDbIDs      = "imdb_id"
	FieldTMDBMappings = "tmdb_mappings"
	FieldTVDBMappings = "tvdb_mappings"
	FieldTargets      = "targets"
)

// Modes reports the mode of every field-level slot keyed by JSON name.
func (o Override) Modes() map[string]Mode {
	return map[string]Mode{
		FieldAniDBID:      o.AniDBID.Mode,
		FieldTVDBID:       o.TVDBID.Mode,
		FieldTMDBShowID:   o.TMDBShowID.Mode,
		FieldTMDBMovieIDs: o.TMDBMovieIDs.Mode,
		FieldMALIDs:       o.MALIDs.Mode,
		FieldIMDbIDs:      o.IMDbIDs.Mode,
		FieldTMDBMappings: o.TMDBMappings.Mode,
		FieldTVDBMappings: o.TVDBMappings.Mode,
	}
}

// HasFieldChanges reports whether any field slot is not omitted.
func (o Override) HasFieldChanges() bool {
	for _, mode := range o.Modes() {
		if mode != ModeOmit {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the override changes nothing.
func (o Override) IsEmpty() bool {
	return !o.HasFieldChanges() && len(o.Targets) == 0
}

// FieldError describes one rejected override field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid override: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

var imdbPattern = regexp.MustCompile(`^tt\d+$`)

// Validate checks every field and returns a *ValidationError listing all
// failures, or nil.
func (o Override) Validate() error {
	verr := &ValidationError{}
	checkID := func(name string, f Field[int]) {
		if f.Mode == ModeValue && f.Value <= 0 {
			verr.add(name, "id must be positive, got %d", f.Value)
		}
	}
	checkIDs := func(name string, f Field[[]int]) {
		if f.Mode != ModeValue {
			return
		}
		for _, id := range f.Value {
			if id <= 0 {
				verr.add(name, "id must be positive, got %d", id)
			}
		}
	}
	checkSeasons := func(name string, f Field[map[string]string]) {
		if f.Mode != ModeValue {
			return
		}
		keys := make([]string, 0, len(f.Value))
		for key := range f.Value {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			if _, err := interval.ParseSeasonKey(key); err != nil {
				verr.add(name, "invalid season key %q", key)
				continue
			}
			if _, err := interval.ParsePattern(f.Value[key]); err != nil {
				verr.add(name, "season %s: %v", key, err)
			}
		}
	}

	checkID(FieldAniDBID, o.AniDBID)
	checkID(FieldTVDBID, o.TVDBID)
	checkID(FieldTMDBShowID, o.TMDBShowID)
	checkIDs(FieldTMDBMovieIDs, o.TMDBMovieIDs)
	checkIDs(FieldMALIDs, o.MALIDs)
	if o.IMDbIDs.Mode == ModeValue {
		for _, id := range o.IMDbIDs.Value {
			if !imdbPattern.MatchString(id) {
				verr.add(FieldIMDbIDs, "imdb id %q must look like tt<digits>", id)
			}
		}
	}
	checkSeasons(FieldTMDBMappings, o.TMDBMappings)
	checkSeasons(FieldTVDBMappings, o.TVDBMappings)

	for i, delta := range o.Targets {
		if _, err := validateDelta(delta); err != nil {
			verr.add(fmt.Sprintf("%s[%d]", FieldTargets, i), "%v", err)
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// validateDelta checks delta and returns its normalized target descriptor.
func validateDelta(delta TargetDelta) (Descriptor, error) {
	if delta.Target.IsZero() {
		return Descriptor{}, fmt.Errorf("target descriptor is required")
	}
	target, err := NewDescriptor(delta.Target.Provider, delta.Target.EntryID, delta.Target.Scope)
	if err != nil {
		return Descriptor{}, err
	}
	seen := make(map[interval.Interval]bool, len(delta.Edges))
	for _, e := range delta.Edges {
		if _, err := interval.New(e.Source.Lo, e.Source.Hi); err != nil {
			return Descriptor{}, fmt.Errorf("source range: %w", err)
		}
		if e.Destination != nil {
			if _, err := interval.New(e.Destination.Lo, e.Destination.Hi); err != nil {
				return Descriptor{}, fmt.Errorf("destination range: %w", err)
			}
		}
		if seen[e.Source] {
			return Descriptor{}, fmt.Errorf("source range %s appears more than once for %s", e.Source, target)
		}
		seen[e.Source] = true
	}
	return target, nil
}
