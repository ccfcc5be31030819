package dataset

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"anibridge/internal/mapping"
)

// entry holds the fields one file sets for one AniList id. Absent keys stay
// unset so later files only replace what they mention.
type entry struct {
	fields map[string]any
}

var knownFields = map[string]bool{
	"anidb_id":      true,
	"tvdb_id":       true,
	"tmdb_show_id":  true,
	"tmdb_movie_id": true,
	"mal_id":        true,
	"imdb_id":       true,
	"tmdb_mappings": true,
	"tvdb_mappings": true,
}

// merge overlays later on e field by field.
func (e *entry) merge(later entry) {
	if e.fields == nil {
		e.fields = make(map[string]any, len(later.fields))
	}
	maps.Copy(e.fields, later.fields)
}

func (e entry) toMapping(id int) (mapping.Mapping, error) {
	m := mapping.Mapping{AniListID: id}
	var err error
	for key, raw := range e.fields {
		if raw == nil {
			continue
		}
		switch key {
		case "anidb_id":
			m.AniDBID, err = scalarInt(raw)
		case "tvdb_id":
			m.TVDBID, err = scalarInt(raw)
		case "tmdb_show_id":
			m.TMDBShowID, err = scalarInt(raw)
		case "tmdb_movie_id":
			m.TMDBMovieIDs, err = intList(raw)
		case "mal_id":
			m.MALIDs, err = intList(raw)
		case "imdb_id":
			m.IMDbIDs, err = stringList(raw)
		case "tmdb_mappings":
			m.TMDBMappings, err = seasonDict(raw)
		case "tvdb_mappings":
			m.TVDBMappings, err = seasonDict(raw)
		}
		if err != nil {
			return mapping.Mapping{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return m, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func scalarInt(v any) (*int, error) {
	if list, ok := v.([]any); ok {
		if len(list) != 1 {
			return nil, fmt.Errorf("expected one id, got %d", len(list))
		}
		v = list[0]
	}
	n, err := toInt(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func intList(v any) ([]int, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		n, err := toInt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func stringList(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected %T in string list", item)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func seasonDict(v any) (map[string]string, error) {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	out := make(map[string]string, len(raw))
	for k, value := range raw {
		switch s := value.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = s
		default:
			return nil, fmt.Errorf("season %s: expected a pattern string, got %T", k, value)
		}
	}
	return out, nil
}
