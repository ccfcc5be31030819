package dataset_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"anibridge/internal/dataset"
	"anibridge/internal/logging"
	"anibridge/internal/mapping"
	"anibridge/internal/testsupport"
)

const baseJSON = `{
  "$meta": {"version": "2.0.0"},
  "$includes": ["edits.yaml"],
  "1": {"anidb_id": 23, "tvdb_id": 76885, "mal_id": 1, "imdb_id": "tt0213338", "tvdb_mappings": {"s1": ""}},
  "21": {"anidb_id": 69, "mal_id": [21], "tmdb_movie_id": [1, 2]},
  "notes": {"anidb_id": 1}
}`

const editsYAML = `
21:
  tvdb_id: 81797
  tvdb_mappings:
    s1: ""
    s3: e1-e13|2
101347:
  anidb_id: 14085
  imdb_id: [tt0000001, tt0000002]
`

func TestLoadMergesIncludesAndTracksSources(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "mappings.json"), baseJSON)
	testsupport.WriteFile(t, filepath.Join(dir, "edits.yaml"), editsYAML)

	ds, err := dataset.Load(filepath.Join(dir, "mappings.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []mapping.Mapping{
		{
			AniListID:    1,
			AniDBID:      mapping.IntPtr(23),
			TVDBID:       mapping.IntPtr(76885),
			MALIDs:       []int{1},
			IMDbIDs:      []string{"tt0213338"},
			TVDBMappings: map[string]string{"s1": ""},
			Sources:      []string{"mappings.json"},
		},
		{
			AniListID:    21,
			AniDBID:      mapping.IntPtr(69),
			TVDBID:       mapping.IntPtr(81797),
			TMDBMovieIDs: []int{1, 2},
			MALIDs:       []int{21},
			TVDBMappings: map[string]string{"s1": "", "s3": "e1-e13|2"},
			Sources:      []string{"edits.yaml", "mappings.json"},
		},
		{
			AniListID: 101347,
			AniDBID:   mapping.IntPtr(14085),
			IMDbIDs:   []string{"tt0000001", "tt0000002"},
			Sources:   []string{"edits.yaml"},
		},
	}
	if diff := cmp.Diff(want, ds.Mappings); diff != "" {
		t.Fatalf("dataset mismatch (-want +got):\n%s", diff)
	}
	if ds.Skipped != 1 {
		t.Fatalf("expected one skipped entry, got %d", ds.Skipped)
	}
	if len(ds.Files) != 2 || filepath.Base(ds.Files[0]) != "edits.yaml" {
		t.Fatalf("expected includes first, got %v", ds.Files)
	}
}

func TestLoadLaterFileOverridesFields(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.json"), `{"5": {"anidb_id": 5, "mal_id": 5}}`)
	testsupport.WriteFile(t, filepath.Join(dir, "b.json"), `{"5": {"anidb_id": 6, "tvdb_id": null}}`)

	ds, err := dataset.Load(filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := ds.Mappings[0]
	if *got.AniDBID != 6 || len(got.MALIDs) != 1 || got.TVDBID != nil {
		t.Fatalf("unexpected merge result %+v", got)
	}
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.json"), `{"$includes": ["b.json"]}`)
	testsupport.WriteFile(t, filepath.Join(dir, "b.json"), `{"$includes": ["a.json"]}`)

	if _, err := dataset.Load(filepath.Join(dir, "a.json")); err == nil {
		t.Fatal("expected include cycle error")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "bad.json"), `{"5": {"anidb_id": [1, 2]}}`)
	if _, err := dataset.Load(filepath.Join(dir, "bad.json")); err == nil {
		t.Fatal("expected error for multiple scalar ids")
	}
}

func TestImportWritesStoreAndPrunes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamFiles(map[string]string{
		"mappings.json": baseJSON,
		"edits.yaml":    editsYAML,
	}))
	// Only the JSON file is an entry point; the YAML arrives through $includes.
	cfg.Mappings.UpstreamPaths = cfg.Mappings.UpstreamPaths[1:]
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustUpsert(t, st, mapping.Mapping{AniListID: 999, Sources: []string{"old.json"}})
	ctx := context.Background()

	result, err := dataset.Import(ctx, cfg, st, dataset.Options{Prune: true}, logging.NewNop())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 3 || result.Pruned != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	row, err := st.GetMapping(ctx, 21)
	if err != nil || row == nil {
		t.Fatalf("GetMapping(21) = %v, %v", row, err)
	}
	if *row.TVDBID != 81797 {
		t.Fatalf("included edits not applied: %+v", row)
	}
	if gone, _ := st.GetMapping(ctx, 999); gone != nil {
		t.Fatalf("stale row survived prune: %+v", gone)
	}
}

func TestImportFailsFastWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamFiles(map[string]string{"mappings.json": `{}`}))
	st := testsupport.MustOpenStore(t, cfg)

	held := flock.New(cfg.ImportLockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer held.Unlock()

	_, err = dataset.Import(context.Background(), cfg, st, dataset.Options{}, logging.NewNop())
	if !errors.Is(err, dataset.ErrImportLocked) {
		t.Fatalf("expected ErrImportLocked, got %v", err)
	}
}
