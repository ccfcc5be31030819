package capability

import "fmt"

var (
	intOps      = []Operator{OpEq, OpIn, OpRange, OpLt, OpLte, OpGt, OpGte, OpHas}
	stringOps   = []Operator{OpEq, OpIn, OpWildcard, OpHas}
	dictOps     = []Operator{OpEq, OpWildcard, OpHas}
	remoteNums  = []Operator{OpEq, OpRange, OpLt, OpLte, OpGt, OpGte}
	remoteEnums = []Operator{OpEq, OpIn}
)

// Builtin returns the static capability for id.
func Builtin(id FieldID) Capability {
	c := Capability{ID: id}
	switch id {
	case FieldAniList:
		c.Aliases = []string{"anilist_id", "al"}
		c.Type = TypeInt
		c.Operators = []Operator{OpEq, OpIn, OpRange, OpLt, OpLte, OpGt, OpGte}
		c.Description = "AniList media id"
	case FieldAniDB:
		c.Aliases = []string{"anidb_id"}
		c.Type = TypeInt
		c.Operators = intOps
		c.Description = "AniDB anime id"
	case FieldTVDB:
		c.Aliases = []string{"tvdb_id"}
		c.Type = TypeInt
		c.Operators = intOps
		c.Description = "TVDB series id"
	case FieldTMDBShow:
		c.Aliases = []string{"tmdb_show_id", "tmdb_tv"}
		c.Type = TypeInt
		c.Operators = intOps
		c.Description = "TMDB TV show id"
	case FieldTMDBMovie:
		c.Aliases = []string{"tmdb_movie_id"}
		c.Type = TypeInt
		c.Operators = intOps
		c.Description = "TMDB movie ids"
	case FieldMAL:
		c.Aliases = []string{"mal_id", "myanimelist"}
		c.Type = TypeInt
		c.Operators = intOps
		c.Description = "MyAnimeList ids"
	case FieldIMDb:
		c.Aliases = []string{"imdb_id"}
		c.Type = TypeString
		c.Operators = stringOps
		c.Description = "IMDb title ids"
	case FieldTMDBMappings:
		c.Aliases = []string{"tmdb_seasons"}
		c.Type = TypeString
		c.Operators = dictOps
		c.Description = "TMDB season patterns (key or key=pattern)"
	case FieldTVDBMappings:
		c.Aliases = []string{"tvdb_seasons"}
		c.Type = TypeString
		c.Operators = dictOps
		c.Description = "TVDB season patterns (key or key=pattern)"
	case FieldSource:
		c.Aliases = []string{"sources"}
		c.Type = TypeString
		c.Operators = stringOps
		c.Description = "Provenance of the mapping row"
	case FieldCustom:
		c.Type = TypeEnum
		c.Operators = []Operator{OpEq}
		c.Values = []string{"true", "false"}
		c.Description = "Row has no upstream provenance"
	case FieldTitle:
		c.Aliases = []string{"name"}
		c.Type = TypeString
		c.Operators = []Operator{OpEq}
		c.Description = "AniList title search"
	case FieldFormat:
		c.Type = TypeEnum
		c.Operators = remoteEnums
		c.Values = []string{"TV", "TV_SHORT", "MOVIE", "SPECIAL", "OVA", "ONA", "MUSIC"}
		c.Description = "AniList media format"
	case FieldStatus:
		c.Type = TypeEnum
		c.Operators = remoteEnums
		c.Values = []string{"FINISHED", "RELEASING", "NOT_YET_RELEASED", "CANCELLED", "HIATUS"}
		c.Description = "AniList release status"
	case FieldSeason:
		c.Type = TypeEnum
		c.Operators = []Operator{OpEq}
		c.Values = []string{"WINTER", "SPRING", "SUMMER", "FALL"}
		c.Description = "AniList airing season"
	case FieldYear:
		c.Aliases = []string{"season_year"}
		c.Type = TypeInt
		c.Operators = remoteNums
		c.Description = "AniList season year"
	case FieldEpisodes:
		c.Aliases = []string{"eps"}
		c.Type = TypeInt
		c.Operators = remoteNums
		c.Description = "AniList episode count"
	case FieldDuration:
		c.Type = TypeInt
		c.Operators = remoteNums
		c.Description = "AniList episode duration in minutes"
	case FieldScore:
		c.Aliases = []string{"average_score"}
		c.Type = TypeInt
		c.Operators = remoteNums
		c.Description = "AniList average score"
	case FieldPopularity:
		c.Type = TypeInt
		c.Operators = remoteNums
		c.Description = "AniList popularity"
	case FieldGenre:
		c.Aliases = []string{"genres"}
		c.Type = TypeString
		c.Operators = remoteEnums
		c.Description = "AniList genres"
	case FieldTag:
		c.Aliases = []string{"tags"}
		c.Type = TypeString
		c.Operators = remoteEnums
		c.Description = "AniList tags"
	default:
		panic(fmt.Sprintf("capability: no builtin for field id %d", uint8(id)))
	}
	return c
}

// Static builds the registry from the builtin catalog.
func Static() *Registry {
	caps := make([]Capability, 0, len(AllFields()))
	for _, id := range AllFields() {
		caps = append(caps, Builtin(id))
	}
	reg, err := NewRegistry(caps)
	if err != nil {
		panic(fmt.Sprintf("capability: builtin catalog invalid: %v", err))
	}
	return reg
}
