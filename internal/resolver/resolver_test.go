package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"anibridge/internal/interval"
	"anibridge/internal/mapping"
	"anibridge/internal/resolver"
	"anibridge/internal/store"
	"anibridge/internal/testsupport"
)

func newResolver(t *testing.T) (*resolver.Resolver, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustUpsert(t, st, testsupport.SampleMappings()...)
	r, err := resolver.New(st, cfg.Mappings.ResolveCacheSize, nil)
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	return r, st
}

func descriptor(t *testing.T, text string) mapping.Descriptor {
	t.Helper()
	d, err := mapping.ParseDescriptor(text)
	if err != nil {
		t.Fatalf("ParseDescriptor(%q): %v", text, err)
	}
	return d
}

func span(lo, hi int) interval.Interval { return interval.Interval{Lo: lo, Hi: hi} }

func spanPtr(lo, hi int) *interval.Interval {
	iv := span(lo, hi)
	return &iv
}

func findTarget(targets []mapping.Target, d mapping.Descriptor) (mapping.Target, bool) {
	i := slices.IndexFunc(targets, func(t mapping.Target) bool { return t.Descriptor == d })
	if i < 0 {
		return mapping.Target{}, false
	}
	return targets[i], true
}

func TestEffectiveIsMemoizedByContent(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	first, err := r.Effective(ctx, 101347)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	second, err := r.Effective(ctx, 101347)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if first != second {
		t.Fatal("expected memoized effective view")
	}
	if r.Len() != 1 {
		t.Fatalf("memo size = %d, want 1", r.Len())
	}
	if first.Override != nil {
		t.Fatalf("unexpected override %+v", first.Override)
	}
	if first.FieldOrigins[mapping.FieldTVDBID] != mapping.OriginUpstream {
		t.Fatalf("tvdb origin = %s, want upstream", first.FieldOrigins[mapping.FieldTVDBID])
	}

	updated, err := r.PutOverride(ctx, 101347, mapping.Override{TVDBID: mapping.Set(999)})
	if err != nil {
		t.Fatalf("PutOverride: %v", err)
	}
	if updated == first {
		t.Fatal("override change must produce a new effective view")
	}
	if *updated.Mapping.TVDBID != 999 {
		t.Fatalf("effective tvdb = %d, want 999", *updated.Mapping.TVDBID)
	}
	if updated.FieldOrigins[mapping.FieldTVDBID] != mapping.OriginCustom {
		t.Fatalf("tvdb origin = %s, want custom", updated.FieldOrigins[mapping.FieldTVDBID])
	}
	if !slices.Contains(updated.Mapping.Sources, "custom") {
		t.Fatalf("expected custom source, got %v", updated.Mapping.Sources)
	}
	if *updated.Upstream.TVDBID != 328592 {
		t.Fatalf("upstream tvdb = %d, want 328592", *updated.Upstream.TVDBID)
	}
}

func TestEffectiveUnknownID(t *testing.T) {
	r, _ := newResolver(t)
	if _, err := r.Effective(context.Background(), 424242); !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutOverrideRejectsInvalidFields(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	_, err := r.PutOverride(ctx, 21, mapping.Override{
		TVDBID:  mapping.Set(-1),
		IMDbIDs: mapping.Set([]string{"nm123"}),
	})
	var verr *mapping.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
	stored, err := st.GetOverride(ctx, 21)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if stored != nil {
		t.Fatalf("invalid override was stored: %+v", stored)
	}
}

func TestEmptyOverrideRemovesStoredOne(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	if _, err := r.PutOverride(ctx, 1, mapping.Override{AniDBID: mapping.Null[int]()}); err != nil {
		t.Fatalf("PutOverride: %v", err)
	}
	eff, err := r.PutOverride(ctx, 1, mapping.Override{})
	if err != nil {
		t.Fatalf("PutOverride empty: %v", err)
	}
	if eff.Override != nil || *eff.Mapping.AniDBID != 23 {
		t.Fatalf("expected upstream values back, got %+v", eff)
	}
	stored, err := st.GetOverride(ctx, 1)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if stored != nil {
		t.Fatalf("override still stored: %+v", stored)
	}
}

func TestApplyTargetDeltasPersistsAndReconciles(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()
	source := descriptor(t, "anilist:101347:tv")
	s1 := descriptor(t, "tvdb:328592:s1")
	s2 := descriptor(t, "tvdb:328592:s2")

	targets, err := r.ApplyTargetDeltas(ctx, source, []mapping.TargetDelta{{
		Target: s2,
		Edges:  []mapping.EdgeDelta{{Source: span(25, 36), Destination: spanPtr(1, 12)}},
	}})
	if err != nil {
		t.Fatalf("ApplyTargetDeltas: %v", err)
	}
	added, ok := findTarget(targets, s2)
	if !ok || added.Origin != mapping.OriginCustom || len(added.Edges) != 1 {
		t.Fatalf("unexpected s2 target %+v", added)
	}
	if kept, _ := findTarget(targets, s1); kept.Origin != mapping.OriginUpstream {
		t.Fatalf("s1 origin = %s, want upstream", kept.Origin)
	}

	targets, err = r.ApplyTargetDeltas(ctx, source, []mapping.TargetDelta{{
		Target: s1,
		Edges:  []mapping.EdgeDelta{{Source: span(1, 24)}},
	}})
	if err != nil {
		t.Fatalf("ApplyTargetDeltas delete: %v", err)
	}
	removed, ok := findTarget(targets, s1)
	if !ok || removed.Origin != mapping.OriginDeleted || len(removed.Edges) != 0 {
		t.Fatalf("expected deleted s1 target, got %+v", removed)
	}
	if _, ok := findTarget(targets, s2); !ok {
		t.Fatal("earlier delta was lost")
	}

	stored, err := st.GetOverride(ctx, 101347)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if stored == nil || len(stored.Targets) != 2 {
		t.Fatalf("expected two stored target deltas, got %+v", stored)
	}

	eff, err := r.Effective(ctx, 101347)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if diff := cmp.Diff(targets, eff.Targets); diff != "" {
		t.Fatalf("effective targets mismatch (-applied +effective):\n%s", diff)
	}
}

func TestApplyTargetDeltasReplacesSameSourceRange(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()
	source := descriptor(t, "anilist:101347:tv")
	s2 := descriptor(t, "tvdb:328592:s2")

	for _, dst := range []*interval.Interval{spanPtr(1, 12), spanPtr(2, 13)} {
		if _, err := r.ApplyTargetDeltas(ctx, source, []mapping.TargetDelta{{
			Target: s2,
			Edges:  []mapping.EdgeDelta{{Source: span(25, 36), Destination: dst}},
		}}); err != nil {
			t.Fatalf("ApplyTargetDeltas: %v", err)
		}
	}
	stored, err := st.GetOverride(ctx, 101347)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	want := []mapping.TargetDelta{{
		Target: s2,
		Edges:  []mapping.EdgeDelta{{Source: span(25, 36), Destination: spanPtr(2, 13)}},
	}}
	if diff := cmp.Diff(want, stored.Targets); diff != "" {
		t.Fatalf("stored deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTargetDeltasMatchesTargetsCaseInsensitively(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()
	source := descriptor(t, "anilist:101347:tv")
	s1 := descriptor(t, "tvdb:328592:s1")
	s2 := descriptor(t, "tvdb:328592:s2")

	if _, err := r.ApplyTargetDeltas(ctx, source, []mapping.TargetDelta{{
		Target: s2,
		Edges:  []mapping.EdgeDelta{{Source: span(25, 36), Destination: spanPtr(1, 12)}},
	}}); err != nil {
		t.Fatalf("ApplyTargetDeltas: %v", err)
	}
	targets, err := r.ApplyTargetDeltas(ctx, source, []mapping.TargetDelta{
		{
			Target: mapping.Descriptor{Provider: "TVDB", EntryID: "328592", Scope: "S2"},
			Edges:  []mapping.EdgeDelta{{Source: span(25, 36), Destination: spanPtr(2, 13)}},
		},
		{
			Target: mapping.Descriptor{Provider: "TVDB", EntryID: "328592", Scope: "S1"},
			Edges:  []mapping.EdgeDelta{{Source: span(1, 24)}},
		},
	})
	if err != nil {
		t.Fatalf("ApplyTargetDeltas mixed case: %v", err)
	}
	if removed, ok := findTarget(targets, s1); !ok || removed.Origin != mapping.OriginDeleted {
		t.Fatalf("expected deleted s1 target, got %+v", targets)
	}

	stored, err := st.GetOverride(ctx, 101347)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	want := []mapping.TargetDelta{
		{Target: s2, Edges: []mapping.EdgeDelta{{Source: span(25, 36), Destination: spanPtr(2, 13)}}},
		{Target: s1, Edges: []mapping.EdgeDelta{{Source: span(1, 24)}}},
	}
	if diff := cmp.Diff(want, stored.Targets); diff != "" {
		t.Fatalf("stored deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTargetDeltasRejectsOverlap(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	_, err := r.ApplyTargetDeltas(ctx, descriptor(t, "anilist:101347:tv"), []mapping.TargetDelta{{
		Target: descriptor(t, "tvdb:328592:s1"),
		Edges:  []mapping.EdgeDelta{{Source: span(10, 30), Destination: spanPtr(1, 21)}},
	}})
	var derr *mapping.DeltaError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DeltaError, got %v", err)
	}
	stored, err := st.GetOverride(ctx, 101347)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if stored != nil {
		t.Fatalf("rejected delta was stored: %+v", stored)
	}
}

func TestApplyTargetDeltasRequiresAniListSource(t *testing.T) {
	r, _ := newResolver(t)
	_, err := r.ApplyTargetDeltas(context.Background(), descriptor(t, "tvdb:328592:s1"), nil)
	if err == nil {
		t.Fatal("expected error for non-anilist source")
	}
}

func TestApplyTargetDeltasCreatesCustomEntry(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	target := descriptor(t, "tmdb_show:1429:s1")

	targets, err := r.ApplyTargetDeltas(ctx, descriptor(t, "anilist:777:tv"), []mapping.TargetDelta{{
		Target: target,
		Edges:  []mapping.EdgeDelta{{Source: span(1, 12), Destination: spanPtr(1, 12)}},
	}})
	if err != nil {
		t.Fatalf("ApplyTargetDeltas: %v", err)
	}
	if len(targets) != 1 || targets[0].Descriptor != target {
		t.Fatalf("unexpected targets %+v", targets)
	}
	eff, err := r.Effective(ctx, 777)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if eff.Upstream != nil {
		t.Fatalf("custom entry reported upstream %+v", eff.Upstream)
	}
	if diff := cmp.Diff(targets, eff.Targets); diff != "" {
		t.Fatalf("targets mismatch (-applied +effective):\n%s", diff)
	}
}

func TestConcurrentDeltasAreSerialized(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()
	source := descriptor(t, "anilist:101347:tv")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for n := 2; n < 10; n++ {
		target := descriptor(t, fmt.Sprintf("tvdb:328592:s%d", n))
		wg.Add(1)
		go func() {
			defer wg.Done()
			lo := 100 + n*10
			_, err := r.ApplyTargetDeltas(ctx, source, []mapping.TargetDelta{{
				Target: target,
				Edges:  []mapping.EdgeDelta{{Source: span(lo, lo+9), Destination: spanPtr(1, 10)}},
			}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ApplyTargetDeltas: %v", err)
		}
	}

	stored, err := st.GetOverride(ctx, 101347)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if stored == nil || len(stored.Targets) != 8 {
		t.Fatalf("expected 8 stored deltas, got %+v", stored)
	}
}
