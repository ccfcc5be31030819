package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"anibridge/internal/mapping"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getOverride(ctx context.Context, q querier, id int) (*mapping.Override, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM overrides WHERE anilist_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override %d: %w", id, err)
	}
	var o mapping.Override
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return nil, fmt.Errorf("decode override %d: %w", id, err)
	}
	return &o, nil
}

// readUpstream returns the stored upstream row for id. exists reports whether
// any mapping row is stored; upstream is nil for custom rows.
func readUpstream(ctx context.Context, q querier, id int) (upstream *mapping.Mapping, exists bool, err error) {
	var raw sql.NullString
	err = q.QueryRowContext(ctx, `SELECT upstream FROM mappings WHERE anilist_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read upstream %d: %w", id, err)
	}
	if !raw.Valid {
		return nil, true, nil
	}
	var m mapping.Mapping
	if err := decodeJSON("upstream", raw, &m); err != nil {
		return nil, true, err
	}
	return &m, true, nil
}

// GetOverride returns the override stored for id, or nil when none exists.
func (s *Store) GetOverride(ctx context.Context, id int) (*mapping.Override, error) {
	return getOverride(ctx, s.db, id)
}

// PutOverride replaces the override for id and rewrites the effective row in
// the same transaction. Ids without upstream data get a custom row built from
// the override alone. Callers validate the override first.
func (s *Store) PutOverride(ctx context.Context, id int, o mapping.Override) (*Record, error) {
	if id <= 0 {
		return nil, fmt.Errorf("put override: invalid anilist id %d", id)
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode override %d: %w", id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin override tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upstream, _, err := readUpstream(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	effective := customOnly(id, o)
	if upstream != nil {
		effective = mapping.Resolve(*upstream, o)
	}
	if err := writeMapping(ctx, tx, effective, upstream); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO overrides (anilist_id, payload, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(anilist_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		id, string(payload), timestamp(),
	); err != nil {
		return nil, fmt.Errorf("write override %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit override: %w", err)
	}
	return s.GetRecord(ctx, id)
}

// DeleteOverride removes the override for id and restores the upstream row.
// Custom rows are removed entirely. It reports whether an override existed.
func (s *Store) DeleteOverride(ctx context.Context, id int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin override tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM overrides WHERE anilist_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete override %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete override %d: %w", id, err)
	}
	if affected == 0 {
		return false, nil
	}

	upstream, exists, err := readUpstream(ctx, tx, id)
	if err != nil {
		return false, err
	}
	switch {
	case upstream != nil:
		if err := writeMapping(ctx, tx, upstream.Clone(), upstream); err != nil {
			return false, err
		}
	case exists:
		if _, err := tx.ExecContext(ctx, `DELETE FROM mappings WHERE anilist_id = ?`, id); err != nil {
			return false, fmt.Errorf("delete custom mapping %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit override: %w", err)
	}
	return true, nil
}

// OverrideIDs lists every id with a stored override in ascending order.
func (s *Store) OverrideIDs(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT anilist_id FROM overrides ORDER BY anilist_id`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan override id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
