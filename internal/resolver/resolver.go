package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"anibridge/internal/logging"
	"anibridge/internal/mapping"
	"anibridge/internal/store"
)

// ErrNotFound is returned for AniList ids with no mapping and no override.
var ErrNotFound = errors.New("mapping not found")

// Store is the persistence the resolver needs.
type Store interface {
	GetRecord(ctx context.Context, id int) (*store.Record, error)
	PutOverride(ctx context.Context, id int, o mapping.Override) (*store.Record, error)
	DeleteOverride(ctx context.Context, id int) (bool, error)
}

type memoKey struct {
	id       int
	upstream string
	override string
}

// Resolver builds effective mappings and applies override edits.
type Resolver struct {
	store  Store
	memo   *lru.Cache[memoKey, *mapping.Effective]
	locks  idLocks
	logger *slog.Logger
}

// New returns a resolver memoizing up to size effective views.
func New(st Store, size int, logger *slog.Logger) (*Resolver, error) {
	if st == nil {
		return nil, errors.New("resolver: store is required")
	}
	if size <= 0 {
		size = 1
	}
	memo, err := lru.New[memoKey, *mapping.Effective](size)
	if err != nil {
		return nil, fmt.Errorf("resolver: create memo: %w", err)
	}
	return &Resolver{
		store:  st,
		memo:   memo,
		logger: logging.NewComponentLogger(logger, "resolver"),
	}, nil
}

// Effective returns the effective view of id. The returned value is shared
// with the memo and must not be modified.
func (r *Resolver) Effective(ctx context.Context, id int) (*mapping.Effective, error) {
	rec, err := r.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("anilist id %d: %w", id, ErrNotFound)
	}
	return r.effective(id, rec)
}

// Len reports the number of memoized views.
func (r *Resolver) Len() int {
	return r.memo.Len()
}

func (r *Resolver) effective(id int, rec *store.Record) (*mapping.Effective, error) {
	upstream, override := baseOf(id, rec)
	key, err := keyFor(id, upstream, override)
	if err != nil {
		return nil, err
	}
	if eff, ok := r.memo.Get(key); ok {
		return eff, nil
	}
	eff, err := mapping.NewEffective(upstream, override)
	if err != nil {
		return nil, fmt.Errorf("resolve anilist id %d: %w", id, err)
	}
	if rec.Upstream == nil {
		eff.Upstream = nil
	}
	r.memo.Add(key, eff)
	return eff, nil
}

// baseOf returns the upstream row to resolve against. Rows created by an
// override alone resolve against an empty row.
func baseOf(id int, rec *store.Record) (mapping.Mapping, mapping.Override) {
	upstream := mapping.Mapping{AniListID: id}
	if rec != nil && rec.Upstream != nil {
		upstream = rec.Upstream.Clone()
	}
	var override mapping.Override
	if rec != nil && rec.Override != nil {
		override = *rec.Override
	}
	return upstream, override
}

func keyFor(id int, upstream mapping.Mapping, override mapping.Override) (memoKey, error) {
	uh, err := mapping.Hash(upstream)
	if err != nil {
		return memoKey{}, fmt.Errorf("hash upstream %d: %w", id, err)
	}
	oh, err := mapping.Hash(override)
	if err != nil {
		return memoKey{}, fmt.Errorf("hash override %d: %w", id, err)
	}
	return memoKey{id: id, upstream: uh, override: oh}, nil
}

// PutOverride validates o and replaces the override of id. An empty override
// removes the stored one. Nothing is written when validation fails.
func (r *Resolver) PutOverride(ctx context.Context, id int, o mapping.Override) (*mapping.Effective, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid anilist id %d", id)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	unlock := r.locks.lock(id)
	defer unlock()
	ctx = logging.WithAniListID(ctx, id)

	if o.IsEmpty() {
		if _, err := r.store.DeleteOverride(ctx, id); err != nil {
			return nil, err
		}
		return r.Effective(ctx, id)
	}

	rec, err := r.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	upstream, _ := baseOf(id, rec)
	if _, err := mapping.EffectiveTargets(upstream, o); err != nil {
		return nil, err
	}
	saved, err := r.store.PutOverride(ctx, id, o)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, r.logger).Info("override saved",
		logging.String(logging.FieldEventType, "override_saved"),
		logging.Int("targets", len(o.Targets)),
	)
	return r.effective(id, saved)
}

// DeleteOverride removes the override of id and reports whether one existed.
func (r *Resolver) DeleteOverride(ctx context.Context, id int) (bool, error) {
	unlock := r.locks.lock(id)
	defer unlock()

	removed, err := r.store.DeleteOverride(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		logging.WithContext(logging.WithAniListID(ctx, id), r.logger).Info("override deleted",
			logging.String(logging.FieldEventType, "override_deleted"),
		)
	}
	return removed, nil
}

// ApplyTargetDeltas merges deltas into the stored override of the AniList
// entry named by source and returns the resulting effective targets. Later
// edits to the same source range replace earlier ones.
func (r *Resolver) ApplyTargetDeltas(ctx context.Context, source mapping.Descriptor, deltas []mapping.TargetDelta) ([]mapping.Target, error) {
	if source.Provider != mapping.ProviderAniList {
		return nil, fmt.Errorf("target deltas need an anilist source, got %s", source)
	}
	id, err := strconv.Atoi(source.EntryID)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid anilist source %s", source)
	}
	unlock := r.locks.lock(id)
	defer unlock()
	ctx = logging.WithAniListID(ctx, id)

	rec, err := r.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	upstream, override := baseOf(id, rec)
	if want := mapping.SourceDescriptor(upstream); rec != nil && rec.Upstream != nil && source.Scope != "" && source != want {
		return nil, fmt.Errorf("source %s does not match stored entry %s", source, want)
	}

	override.Targets = mergeDeltas(override.Targets, deltas)
	if err := override.Validate(); err != nil {
		return nil, err
	}
	targets, err := mapping.EffectiveTargets(upstream, override)
	if err != nil {
		return nil, err
	}

	if override.IsEmpty() {
		if _, err := r.store.DeleteOverride(ctx, id); err != nil {
			return nil, err
		}
	} else if _, err := r.store.PutOverride(ctx, id, override); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, r.logger).Info("target deltas applied",
		logging.String(logging.FieldEventType, "targets_applied"),
		logging.Int("deltas", len(deltas)),
		logging.Int("targets", len(targets)),
	)
	return targets, nil
}

// mergeDeltas folds incoming into existing. Each target keeps one delta and
// each source range at most one edge, with incoming edges winning. Targets
// are compared in normalized form.
func mergeDeltas(existing, incoming []mapping.TargetDelta) []mapping.TargetDelta {
	out := make([]mapping.TargetDelta, 0, len(existing)+len(incoming))
	for _, d := range existing {
		out = append(out, mapping.TargetDelta{Target: normalizeTarget(d.Target), Edges: slices.Clone(d.Edges)})
	}
	for _, d := range incoming {
		target := normalizeTarget(d.Target)
		i := slices.IndexFunc(out, func(e mapping.TargetDelta) bool { return e.Target == target })
		if i < 0 {
			out = append(out, mapping.TargetDelta{Target: target})
			i = len(out) - 1
		}
		for _, edge := range d.Edges {
			out[i].Edges = slices.DeleteFunc(out[i].Edges, func(e mapping.EdgeDelta) bool { return e.Source == edge.Source })
			out[i].Edges = append(out[i].Edges, edge)
		}
	}
	return slices.DeleteFunc(out, func(d mapping.TargetDelta) bool { return len(d.Edges) == 0 })
}

// normalizeTarget returns d unchanged when it is invalid; Validate reports it.
func normalizeTarget(d mapping.Descriptor) mapping.Descriptor {
	n, err := mapping.NewDescriptor(d.Provider, d.EntryID, d.Scope)
	if err != nil {
		return d
	}
	return n
}
