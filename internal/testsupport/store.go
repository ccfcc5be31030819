package testsupport

import (
	"context"
	"testing"

	"anibridge/internal/config"
	"anibridge/internal/mapping"
	"anibridge/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustUpsert stores upstream rows for tests.
func MustUpsert(t testing.TB, st *store.Store, rows ...mapping.Mapping) {
	t.Helper()

	if _, err := st.UpsertMappings(context.Background(), rows); err != nil {
		t.Fatalf("store.UpsertMappings: %v", err)
	}
}

// SampleMappings returns a small upstream dataset covering every local field.
func SampleMappings() []mapping.Mapping {
	return []mapping.Mapping{
		{
			AniListID:    1,
			AniDBID:      mapping.IntPtr(23),
			TVDBID:       mapping.IntPtr(76885),
			TMDBShowID:   mapping.IntPtr(30991),
			MALIDs:       []int{1},
			IMDbIDs:      []string{"tt0213338"},
			TVDBMappings: map[string]string{"s1": ""},
			Sources:      []string{"mappings.json"},
		},
		{
			AniListID:    5,
			AniDBID:      mapping.IntPtr(5),
			TMDBMovieIDs: []int{11299},
			MALIDs:       []int{5},
			IMDbIDs:      []string{"tt0275277"},
			Sources:      []string{"mappings.json"},
		},
		{
			AniListID:    101347,
			AniDBID:      mapping.IntPtr(14085),
			TVDBID:       mapping.IntPtr(328592),
			MALIDs:       []int{37520},
			TVDBMappings: map[string]string{"s1": "e1-e24"},
			Sources:      []string{"mappings.edits.yaml", "mappings.json"},
		},
		{
			AniListID:    21,
			AniDBID:      mapping.IntPtr(69),
			TVDBID:       mapping.IntPtr(81797),
			TMDBShowID:   mapping.IntPtr(37854),
			MALIDs:       []int{21},
			TMDBMappings: map[string]string{"s1": "e1-e61", "s2": "e62-e77"},
			TVDBMappings: map[string]string{"s1": "", "s2": "", "s3": "e1-e13|2"},
			Sources:      []string{"mappings.json"},
		},
		{
			AniListID: 30,
			Sources:   []string{"mappings.json"},
		},
	}
}
