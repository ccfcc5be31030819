package store

import (
	"context"
	"fmt"

	"anibridge/internal/mapping"
)

// Stats summarizes database contents.
type Stats struct {
	Mappings   int            `json:"mappings"`
	Custom     int            `json:"custom"`
	Overrides  int            `json:"overrides"`
	ByProvider map[string]int `json:"by_provider"`
}

// Stats counts rows overall and per linked provider.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByProvider: make(map[string]int)}
	row := s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(custom), 0),
            COUNT(anidb_id),
            COUNT(tvdb_id),
            COUNT(tmdb_show_id),
            COUNT(tmdb_movie_ids),
            COUNT(mal_ids),
            COUNT(imdb_ids)
        FROM mappings`)
	var anidb, tvdb, tmdbShow, tmdbMovie, mal, imdb int
	if err := row.Scan(&stats.Mappings, &stats.Custom, &anidb, &tvdb, &tmdbShow, &tmdbMovie, &mal, &imdb); err != nil {
		return Stats{}, fmt.Errorf("count mappings: %w", err)
	}
	stats.ByProvider[mapping.ProviderAniDB] = anidb
	stats.ByProvider[mapping.ProviderTVDB] = tvdb
	stats.ByProvider[mapping.ProviderTMDBShow] = tmdbShow
	stats.ByProvider[mapping.ProviderTMDBMovie] = tmdbMovie
	stats.ByProvider[mapping.ProviderMAL] = mal
	stats.ByProvider[mapping.ProviderIMDb] = imdb

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM overrides`).Scan(&stats.Overrides); err != nil {
		return Stats{}, fmt.Errorf("count overrides: %w", err)
	}
	return stats, nil
}
