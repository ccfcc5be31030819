package api_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"

	"anibridge/internal/api"
	"anibridge/internal/capability"
	"anibridge/internal/config"
	"anibridge/internal/dataset"
	"anibridge/internal/logging"
	"anibridge/internal/mapping"
	"anibridge/internal/planner"
	"anibridge/internal/querylang"
	"anibridge/internal/search"
	"anibridge/internal/testsupport"
)

type enumSource struct {
	genres []string
	err    error
}

func (e enumSource) Genres(context.Context) ([]string, error) { return e.genres, nil }

func (e enumSource) Tags(context.Context) ([]string, error) { return nil, e.err }

func newService(t *testing.T, cfg *config.Config, caps *capability.Cache) *api.Service {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustUpsert(t, st, testsupport.SampleMappings()...)
	svc, err := api.NewService(api.Options{
		Config:       cfg,
		Store:        st,
		AniList:      testsupport.NewFakeAniList(testsupport.SampleMedia()...),
		Capabilities: caps,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func rowIDs(res *api.SearchResult) []int {
	ids := make([]int, len(res.Rows))
	for i, row := range res.Rows {
		ids[i] = row.AniListID
	}
	return ids
}

func TestSearchAttachesEffectiveMappings(t *testing.T) {
	svc := newService(t, testsupport.NewConfig(t), nil)

	res, err := svc.Search(context.Background(), "has:tvdb format:tv", search.Page{}, search.ExecOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Strategy != string(planner.StrategyPushdown) {
		t.Fatalf("strategy = %s, want pushdown", res.Strategy)
	}
	if !slices.Equal(rowIDs(res), []int{1, 21, 101347}) {
		t.Fatalf("unexpected rows %v", rowIDs(res))
	}
	for _, row := range res.Rows {
		if row.Effective == nil || len(row.Effective.Targets) == 0 {
			t.Fatalf("row %d missing effective targets", row.AniListID)
		}
		if row.Title == "" {
			t.Fatalf("row %d missing title", row.AniListID)
		}
	}
	if _, err := uuid.Parse(res.CorrelationID); err != nil {
		t.Fatalf("expected uuid correlation id, got %q", res.CorrelationID)
	}
}

func TestSearchKeepsCallerCorrelationID(t *testing.T) {
	svc := newService(t, testsupport.NewConfig(t), nil)
	ctx := logging.WithCorrelationID(context.Background(), "req-42")

	res, err := svc.Search(ctx, "anidb:5", search.Page{}, search.ExecOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.CorrelationID != "req-42" {
		t.Fatalf("correlation id = %q, want req-42", res.CorrelationID)
	}
}

func TestRemoteOnlyRowsHaveNoEffectiveMapping(t *testing.T) {
	svc := newService(t, testsupport.NewConfig(t), nil)

	res, err := svc.Search(context.Background(), "Dororo", search.Page{}, search.ExecOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rowIDs(res))
	}
	if res.Rows[0].Effective == nil || res.Rows[1].Effective != nil {
		t.Fatalf("expected only the stored entry to carry a mapping, got %+v", res.Rows)
	}
	if res.Rows[1].Title != "Dororo to Hyakkimaru" {
		t.Fatalf("unexpected title %q", res.Rows[1].Title)
	}
}

func TestParseAndCompileErrors(t *testing.T) {
	svc := newService(t, testsupport.NewConfig(t), nil)
	ctx := context.Background()

	var perr *querylang.ParseError
	if _, err := svc.ParseAndCompile(ctx, "anilist:1 ("); !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	var cerr *planner.CompileError
	if _, err := svc.ParseAndCompile(ctx, "imdb:1..5"); !errors.As(err, &cerr) {
		t.Fatalf("expected CompileError, got %v", err)
	}
}

func TestCapabilitiesUseAniListEnums(t *testing.T) {
	caps := capability.NewCache(capability.EnumLoader(enumSource{
		genres: []string{"Action", "Drama"},
		err:    errors.New("tags offline"),
	}, logging.NewNop()))
	svc := newService(t, testsupport.NewConfig(t), caps)

	fields, err := svc.ListFieldCapabilities(context.Background())
	if err != nil {
		t.Fatalf("ListFieldCapabilities: %v", err)
	}
	byKey := make(map[string]api.FieldCapability, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}
	genre := byKey["genre"]
	if genre.Type != string(capability.TypeEnum) || !slices.Equal(genre.Values, []string{"Action", "Drama"}) {
		t.Fatalf("unexpected genre capability %+v", genre)
	}
	if byKey["tag"].Type != string(capability.TypeString) {
		t.Fatalf("tag should stay free-form, got %+v", byKey["tag"])
	}
	if byKey["tvdb"].Domain != string(capability.DomainLocal) || byKey["format"].Domain != string(capability.DomainRemote) {
		t.Fatalf("unexpected domains tvdb=%s format=%s", byKey["tvdb"].Domain, byKey["format"].Domain)
	}
}

func TestOverrideIsVisibleToQueries(t *testing.T) {
	svc := newService(t, testsupport.NewConfig(t), nil)
	ctx := context.Background()

	eff, err := svc.PutOverride(ctx, 30, mapping.Override{TVDBID: mapping.Set(70350)})
	if err != nil {
		t.Fatalf("PutOverride: %v", err)
	}
	if eff.FieldOrigins[mapping.FieldTVDBID] != mapping.OriginCustom {
		t.Fatalf("tvdb origin = %s, want custom", eff.FieldOrigins[mapping.FieldTVDBID])
	}

	res, err := svc.Search(ctx, "tvdb:70350", search.Page{}, search.ExecOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !slices.Equal(rowIDs(res), []int{30}) {
		t.Fatalf("override not visible to queries: %v", rowIDs(res))
	}
	if res.Rows[0].Effective.Override == nil {
		t.Fatal("expected override on effective view")
	}

	removed, err := svc.DeleteOverride(ctx, 30)
	if err != nil || !removed {
		t.Fatalf("DeleteOverride = %v, %v", removed, err)
	}
	res, err = svc.Search(ctx, "tvdb:70350", search.Page{}, search.ExecOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Fatalf("expected no rows after delete, got %v", rowIDs(res))
	}
}

func TestImportAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamFiles(map[string]string{
		"mappings.json": `{"7": {"anidb_id": 7, "tvdb_id": 70}, "8": {"mal_id": [8, 9]}}`,
	}))
	svc := newService(t, cfg, nil)
	ctx := context.Background()

	result, err := svc.Import(ctx, dataset.Options{Prune: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 2 || result.Pruned != 5 {
		t.Fatalf("unexpected import result %+v", result)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Mappings != 2 || stats.ByProvider[mapping.ProviderMAL] != 1 || stats.ByProvider[mapping.ProviderTVDB] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Database != cfg.DatabasePath() {
		t.Fatalf("database = %q, want %q", stats.Database, cfg.DatabasePath())
	}
}

func TestSessionSupersedesQueries(t *testing.T) {
	svc := newService(t, testsupport.NewConfig(t), nil)
	session := svc.NewSession()

	res, err := session.Search(context.Background(), "anidb:5", search.Page{}, search.ExecOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !slices.Equal(rowIDs(res), []int{5}) {
		t.Fatalf("unexpected rows %v", rowIDs(res))
	}
}
