package store

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"anibridge/internal/mapping"
	"anibridge/internal/querylang"
)

const mappingColumns = `anilist_id, anidb_id, tvdb_id, tmdb_show_id, tmdb_movie_ids, mal_ids,
    imdb_ids, tmdb_mappings, tvdb_mappings, custom, sources`

// idBatchSize keeps IN lists under SQLite's bound parameter limit.
const idBatchSize = 500

// Record is everything stored for one AniList id.
type Record struct {
	// Effective holds the values with the override applied.
	Effective mapping.Mapping
	// Upstream is nil for rows created by an override alone.
	Upstream *mapping.Mapping
	Override *mapping.Override
}

// Page bounds a filtered listing. A non-positive Limit returns every row.
type Page struct {
	Limit  int
	Offset int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(scanner rowScanner) (mapping.Mapping, error) {
	var (
		m                     mapping.Mapping
		anidb, tvdb, tmdbShow sql.NullInt64
		tmdbMovies, mal, imdb sql.NullString
		tmdbMap, tvdbMap      sql.NullString
		sources               sql.NullString
		custom                int
	)
	if err := scanner.Scan(&m.AniListID, &anidb, &tvdb, &tmdbShow, &tmdbMovies, &mal,
		&imdb, &tmdbMap, &tvdbMap, &custom, &sources); err != nil {
		return mapping.Mapping{}, err
	}
	m.AniDBID = intPointer(anidb)
	m.TVDBID = intPointer(tvdb)
	m.TMDBShowID = intPointer(tmdbShow)
	m.Custom = custom != 0
	decoders := []struct {
		column string
		raw    sql.NullString
		dst    any
	}{
		{"tmdb_movie_ids", tmdbMovies, &m.TMDBMovieIDs},
		{"mal_ids", mal, &m.MALIDs},
		{"imdb_ids", imdb, &m.IMDbIDs},
		{"tmdb_mappings", tmdbMap, &m.TMDBMappings},
		{"tvdb_mappings", tvdbMap, &m.TVDBMappings},
		{"sources", sources, &m.Sources},
	}
	for _, d := range decoders {
		if err := decodeJSON(d.column, d.raw, d.dst); err != nil {
			return mapping.Mapping{}, err
		}
	}
	return m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// writeMapping replaces the stored row for m.AniListID. upstream is stored
// verbatim so overrides can later be re-applied or removed.
func writeMapping(ctx context.Context, db execer, m mapping.Mapping, upstream *mapping.Mapping) error {
	args := []any{m.AniListID, nullableInt(m.AniDBID), nullableInt(m.TVDBID), nullableInt(m.TMDBShowID)}
	for _, encode := range []func() (any, error){
		func() (any, error) { return encodeJSON(m.TMDBMovieIDs) },
		func() (any, error) { return encodeJSON(m.MALIDs) },
		func() (any, error) { return encodeJSON(m.IMDbIDs) },
		func() (any, error) { return encodeDict(m.TMDBMappings) },
		func() (any, error) { return encodeDict(m.TVDBMappings) },
	} {
		v, err := encode()
		if err != nil {
			return fmt.Errorf("encode mapping %d: %w", m.AniListID, err)
		}
		args = append(args, v)
	}
	sources, err := encodeJSON(m.Sources)
	if err != nil {
		return fmt.Errorf("encode sources %d: %w", m.AniListID, err)
	}
	var upstreamJSON any
	if upstream != nil {
		data, err := json.Marshal(upstream)
		if err != nil {
			return fmt.Errorf("encode upstream %d: %w", m.AniListID, err)
		}
		upstreamJSON = string(data)
	}
	args = append(args, boolToInt(m.Custom), sources, upstreamJSON, timestamp())

	_, err = db.ExecContext(ctx,
		`INSERT INTO mappings (
            anilist_id, anidb_id, tvdb_id, tmdb_show_id, tmdb_movie_ids, mal_ids,
            imdb_ids, tmdb_mappings, tvdb_mappings, custom, sources, upstream, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(anilist_id) DO UPDATE SET
            anidb_id = excluded.anidb_id,
            tvdb_id = excluded.tvdb_id,
            tmdb_show_id = excluded.tmdb_show_id,
            tmdb_movie_ids = excluded.tmdb_movie_ids,
            mal_ids = excluded.mal_ids,
            imdb_ids = excluded.imdb_ids,
            tmdb_mappings = excluded.tmdb_mappings,
            tvdb_mappings = excluded.tvdb_mappings,
            custom = excluded.custom,
            sources = excluded.sources,
            upstream = excluded.upstream,
            updated_at = excluded.updated_at`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("write mapping %d: %w", m.AniListID, err)
	}
	return nil
}

// UpsertMappings stores upstream rows in one transaction. Existing overrides
// are re-applied so effective values stay current. It returns the number of
// rows written.
func (s *Store) UpsertMappings(ctx context.Context, rows []mapping.Mapping) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		if row.AniListID <= 0 {
			return 0, fmt.Errorf("upsert mapping: invalid anilist id %d", row.AniListID)
		}
		upstream := row.Clone()
		upstream.Custom = false

		override, err := getOverride(ctx, tx, row.AniListID)
		if err != nil {
			return 0, err
		}
		effective := upstream.Clone()
		if override != nil {
			effective = mapping.Resolve(upstream, *override)
		}
		if err := writeMapping(ctx, tx, effective, &upstream); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(rows), nil
}

// PruneUpstream removes upstream rows whose ids are not in keep. Rows that
// carry an override survive as custom rows built from the override alone.
func (s *Store) PruneUpstream(ctx context.Context, keep *roaring.Bitmap) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT anilist_id FROM mappings WHERE upstream IS NOT NULL ORDER BY anilist_id`)
	if err != nil {
		return 0, fmt.Errorf("list upstream ids: %w", err)
	}
	var stale []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan upstream id: %w", err)
		}
		if keep == nil || !keep.Contains(uint32(id)) {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("list upstream ids: %w", err)
	}

	for _, id := range stale {
		override, err := getOverride(ctx, tx, id)
		if err != nil {
			return 0, err
		}
		if override == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM mappings WHERE anilist_id = ?`, id); err != nil {
				return 0, fmt.Errorf("delete mapping %d: %w", id, err)
			}
			continue
		}
		if err := writeMapping(ctx, tx, customOnly(id, *override), nil); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return len(stale), nil
}

func customOnly(id int, o mapping.Override) mapping.Mapping {
	m := mapping.Resolve(mapping.Mapping{AniListID: id}, o)
	m.Custom = true
	if len(m.Sources) == 0 {
		m.Sources = []string{mapping.SourceCustom}
	}
	return m
}

// GetMapping fetches the effective mapping for an AniList id. It returns nil
// when the id is unknown.
func (s *Store) GetMapping(ctx context.Context, id int) (*mapping.Mapping, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mappingColumns+` FROM mappings WHERE anilist_id = ?`, id)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return &m, nil
}

// GetRecord fetches the effective row, its upstream source, and its override.
// It returns nil when neither a mapping nor an override exists for id.
func (s *Store) GetRecord(ctx context.Context, id int) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mappingColumns+`, upstream FROM mappings WHERE anilist_id = ?`, id)
	var rec Record
	var upstream sql.NullString
	m, err := scanMapping(scanFunc(func(dest ...any) error {
		return row.Scan(append(dest, &upstream)...)
	}))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get record: %w", err)
	}
	rec.Effective = m
	if upstream.Valid {
		var up mapping.Mapping
		if err := decodeJSON("upstream", upstream, &up); err != nil {
			return nil, err
		}
		rec.Upstream = &up
	}
	rec.Override, err = getOverride(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// GetMappings fetches effective mappings for ids in ascending id order.
// Unknown ids are skipped.
func (s *Store) GetMappings(ctx context.Context, ids []int) ([]mapping.Mapping, error) {
	var out []mapping.Mapping
	for start := 0; start < len(ids); start += idBatchSize {
		end := min(start+idBatchSize, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+mappingColumns+` FROM mappings WHERE anilist_id IN (`+placeholders(len(batch))+`) ORDER BY anilist_id`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("get mappings: %w", err)
		}
		batchRows, err := collect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, batchRows...)
	}
	slices.SortFunc(out, func(a, b mapping.Mapping) int { return cmp.Compare(a.AniListID, b.AniListID) })
	return out, nil
}

func collect(rows *sql.Rows) ([]mapping.Mapping, error) {
	defer rows.Close()
	var out []mapping.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Filter returns effective rows matching a local predicate tree, ordered by
// AniList id. A nil tree matches every row.
func (s *Store) Filter(ctx context.Context, tree querylang.Node, page Page) ([]mapping.Mapping, error) {
	where, args, err := CompileWhere(tree)
	if err != nil {
		return nil, err
	}
	limit := page.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(page.Offset, 0))
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mappingColumns+` FROM mappings WHERE `+where+` ORDER BY anilist_id LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("filter mappings: %w", err)
	}
	return collect(rows)
}

// FilterIDs returns the ids of every row matching tree.
func (s *Store) FilterIDs(ctx context.Context, tree querylang.Node) (*roaring.Bitmap, error) {
	where, args, err := CompileWhere(tree)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT anilist_id FROM mappings WHERE `+where+` ORDER BY anilist_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("filter mapping ids: %w", err)
	}
	defer rows.Close()

	ids := roaring.New()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan mapping id: %w", err)
		}
		ids.Add(uint32(id))
	}
	return ids, rows.Err()
}

// Count returns the number of rows matching tree.
func (s *Store) Count(ctx context.Context, tree querylang.Node) (int, error) {
	where, args, err := CompileWhere(tree)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM mappings WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return n, nil
}
