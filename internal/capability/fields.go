package capability

import "fmt"

// FieldID identifies a searchable field.
type FieldID uint8

// Local mapping-store fields.
const (
	FieldAniList FieldID = iota + 1
	FieldAniDB
	FieldTVDB
	FieldTMDBShow
	FieldTMDBMovie
	FieldMAL
	FieldIMDb
	FieldTMDBMappings
	FieldTVDBMappings
	FieldSource
	FieldCustom
)

// Remote AniList fields.
const (
	FieldTitle FieldID = iota + 32
	FieldFormat
	FieldStatus
	FieldSeason
	FieldYear
	FieldEpisodes
	FieldDuration
	FieldScore
	FieldPopularity
	FieldGenre
	FieldTag
)

// AllFields lists every field in registry display order.
func AllFields() []FieldID {
	return []FieldID{
		FieldAniList, FieldAniDB, FieldTVDB, FieldTMDBShow, FieldTMDBMovie,
		FieldMAL, FieldIMDb, FieldTMDBMappings, FieldTVDBMappings, FieldSource,
		FieldCustom,
		FieldTitle, FieldFormat, FieldStatus, FieldSeason, FieldYear,
		FieldEpisodes, FieldDuration, FieldScore, FieldPopularity, FieldGenre,
		FieldTag,
	}
}

// Domain reports where a field's predicate can be evaluated.
type Domain string

const (
	DomainLocal  Domain = "local"
	DomainRemote Domain = "remote"
)

// Shape describes how many values a field holds per row.
type Shape string

const (
	ShapeScalar Shape = "scalar"
	ShapeList   Shape = "list"
	ShapeDict   Shape = "dict"
)

// Key returns the canonical query name of the field.
func (f FieldID) Key() string {
	switch f {
	case FieldAniList:
		return "anilist"
	case FieldAniDB:
		return "anidb"
	case FieldTVDB:
		return "tvdb"
	case FieldTMDBShow:
		return "tmdb_show"
	case FieldTMDBMovie:
		return "tmdb_movie"
	case FieldMAL:
		return "mal"
	case FieldIMDb:
		return "imdb"
	case FieldTMDBMappings:
		return "tmdb_mappings"
	case FieldTVDBMappings:
		return "tvdb_mappings"
	case FieldSource:
		return "source"
	case FieldCustom:
		return "custom"
	case FieldTitle:
		return "title"
	case FieldFormat:
		return "format"
	case FieldStatus:
		return "status"
	case FieldSeason:
		return "season"
	case FieldYear:
		return "year"
	case FieldEpisodes:
		return "episodes"
	case FieldDuration:
		return "duration"
	case FieldScore:
		return "score"
	case FieldPopularity:
		return "popularity"
	case FieldGenre:
		return "genre"
	case FieldTag:
		return "tag"
	}
	panic(fmt.Sprintf("capability: unknown field id %d", uint8(f)))
}

func (f FieldID) String() string {
	if !f.Valid() {
		return fmt.Sprintf("field(%d)", uint8(f))
	}
	return f.Key()
}

// Valid reports whether f is a declared field.
func (f FieldID) Valid() bool {
	return (f >= FieldAniList && f <= FieldCustom) || (f >= FieldTitle && f <= FieldTag)
}

// Domain reports whether the field is answered locally or by AniList.
func (f FieldID) Domain() Domain {
	switch f {
	case FieldAniList, FieldAniDB, FieldTVDB, FieldTMDBShow, FieldTMDBMovie,
		FieldMAL, FieldIMDb, FieldTMDBMappings, FieldTVDBMappings, FieldSource,
		FieldCustom:
		return DomainLocal
	case FieldTitle, FieldFormat, FieldStatus, FieldSeason, FieldYear,
		FieldEpisodes, FieldDuration, FieldScore, FieldPopularity, FieldGenre,
		FieldTag:
		return DomainRemote
	}
	panic(fmt.Sprintf("capability: unknown field id %d", uint8(f)))
}

// Shape reports how values are laid out for the field.
func (f FieldID) Shape() Shape {
	switch f {
	case FieldAniList, FieldAniDB, FieldTVDB, FieldTMDBShow, FieldCustom,
		FieldTitle, FieldFormat, FieldStatus, FieldSeason, FieldYear,
		FieldEpisodes, FieldDuration, FieldScore, FieldPopularity:
		return ShapeScalar
	case FieldTMDBMovie, FieldMAL, FieldIMDb, FieldSource, FieldGenre, FieldTag:
		return ShapeList
	case FieldTMDBMappings, FieldTVDBMappings:
		return ShapeDict
	}
	panic(fmt.Sprintf("capability: unknown field id %d", uint8(f)))
}
