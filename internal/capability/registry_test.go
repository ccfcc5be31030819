package capability_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"anibridge/internal/capability"
)

func TestStaticRegistryCoversEveryField(t *testing.T) {
	reg := capability.Static()
	caps := reg.List()
	if len(caps) != len(capability.AllFields()) {
		t.Fatalf("expected %d capabilities, got %d", len(capability.AllFields()), len(caps))
	}
	for _, c := range caps {
		if c.Key != c.ID.Key() {
			t.Fatalf("capability key %q does not match field key %q", c.Key, c.ID.Key())
		}
		if c.Domain != c.ID.Domain() || c.Shape != c.ID.Shape() {
			t.Fatalf("%s: domain/shape not derived from field id", c.Key)
		}
	}
}

func TestLookupIsCaseInsensitiveAndResolvesAliases(t *testing.T) {
	reg := capability.Static()
	cases := map[string]capability.FieldID{
		"AniList":      capability.FieldAniList,
		"anilist_id":   capability.FieldAniList,
		"TVDB_ID":      capability.FieldTVDB,
		"tmdb_tv":      capability.FieldTMDBShow,
		"Genres":       capability.FieldGenre,
		"tvdb_seasons": capability.FieldTVDBMappings,
	}
	for name, want := range cases {
		got, ok := reg.Lookup(name)
		if !ok {
			t.Fatalf("lookup %q failed", name)
		}
		if got.ID != want {
			t.Fatalf("lookup %q: got %s want %s", name, got.ID, want)
		}
	}
	if _, ok := reg.Lookup("nope"); ok {
		t.Fatal("expected unknown field lookup to fail")
	}
}

func TestCanonicalValueForEnums(t *testing.T) {
	reg := capability.Static()
	format, _ := reg.Field(capability.FieldFormat)
	if v, ok := format.CanonicalValue("tv_short"); !ok || v != "TV_SHORT" {
		t.Fatalf("expected TV_SHORT, got %q ok=%v", v, ok)
	}
	if _, ok := format.CanonicalValue("cartoon"); ok {
		t.Fatal("expected unknown enum value to be rejected")
	}
	imdb, _ := reg.Field(capability.FieldIMDb)
	if v, ok := imdb.CanonicalValue("tt123"); !ok || v != "tt123" {
		t.Fatalf("string fields should accept any value, got %q ok=%v", v, ok)
	}
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	a := capability.Builtin(capability.FieldAniDB)
	b := capability.Builtin(capability.FieldTVDB)
	b.Aliases = []string{"anidb_id"}
	if _, err := capability.NewRegistry([]capability.Capability{a, b}); err == nil {
		t.Fatal("expected alias collision to be rejected")
	}
}

func TestWithEnumValuesUpgradesField(t *testing.T) {
	reg, err := capability.Static().WithEnumValues(capability.FieldGenre, []string{"Action", "Drama"})
	if err != nil {
		t.Fatalf("WithEnumValues: %v", err)
	}
	genre, _ := reg.Field(capability.FieldGenre)
	if genre.Type != capability.TypeEnum || len(genre.Values) != 2 {
		t.Fatalf("expected genre enum with 2 values, got %#v", genre)
	}
	orig, _ := capability.Static().Field(capability.FieldGenre)
	if orig.Type != capability.TypeString {
		t.Fatal("static registry must not be mutated")
	}
}

func TestCacheSharesSingleLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	cache := capability.NewCache(func(ctx context.Context) (*capability.Registry, error) {
		calls.Add(1)
		<-release
		return capability.Static(), nil
	})

	var wg sync.WaitGroup
	results := make([]*capability.Registry, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := cache.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			results[i] = reg
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one load, got %d", calls.Load())
	}
	for i, reg := range results {
		if reg != results[0] {
			t.Fatalf("caller %d received a different registry", i)
		}
	}
}

func TestCacheInvalidateForcesReload(t *testing.T) {
	var calls atomic.Int32
	cache := capability.NewCache(func(ctx context.Context) (*capability.Registry, error) {
		calls.Add(1)
		return capability.Static(), nil
	})
	ctx := context.Background()
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected memoized registry, got %d loads", calls.Load())
	}
	if _, err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected reload after refresh, got %d loads", calls.Load())
	}
}

func TestCacheDoesNotMemoizeErrors(t *testing.T) {
	var calls atomic.Int32
	cache := capability.NewCache(func(ctx context.Context) (*capability.Registry, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("boom")
		}
		return capability.Static(), nil
	})
	if _, err := cache.Get(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

type fakeEnums struct {
	genres []string
	err    error
}

func (f fakeEnums) Genres(context.Context) ([]string, error) { return f.genres, f.err }
func (f fakeEnums) Tags(context.Context) ([]string, error)   { return nil, errors.New("tags down") }

func TestEnumLoaderFallsBackPerField(t *testing.T) {
	load := capability.EnumLoader(fakeEnums{genres: []string{"Action"}}, nil)
	reg, err := load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	genre, _ := reg.Field(capability.FieldGenre)
	if genre.Type != capability.TypeEnum {
		t.Fatalf("expected genre enum, got %s", genre.Type)
	}
	tag, _ := reg.Field(capability.FieldTag)
	if tag.Type != capability.TypeString {
		t.Fatalf("expected tag to stay string after fetch failure, got %s", tag.Type)
	}
}
