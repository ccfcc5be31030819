package planner_test

import (
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/go-cmp/cmp"

	"anibridge/internal/anilist"
	"anibridge/internal/capability"
	"anibridge/internal/mapping"
	"anibridge/internal/planner"
	"anibridge/internal/querylang"
)

func mustPlan(t *testing.T, query string) *planner.Plan {
	t.Helper()
	plan, err := planner.ParseAndCompile(query, capability.Static())
	if err != nil {
		t.Fatalf("ParseAndCompile(%q) returned error: %v", query, err)
	}
	return plan
}

func TestCompileStrategies(t *testing.T) {
	cases := []struct {
		query    string
		strategy planner.Strategy
		local    string
		remote   string
	}{
		{"", planner.StrategyLocal, "TRUE", "TRUE"},
		{"tvdb:328592 | tmdb_show:21298", planner.StrategyLocal, "Or(tvdb:328592,tmdb_show:21298)", "TRUE"},
		{"Dororo", planner.StrategyRemote, "TRUE", `"Dororo"`},
		{"format:tv year:2019", planner.StrategyRemote, "TRUE", "And(format:TV,year:2019)"},
		{"has:tvdb_mappings format:movie", planner.StrategyPushdown, "has:tvdb_mappings", "format:MOVIE"},
		{"(anidb:1 | anidb:2) -format:movie", planner.StrategyPushdown, "Or(anidb:1,anidb:2)", "Not(format:MOVIE)"},
		{"anidb:1 | format:movie", planner.StrategySuperset, "TRUE", "TRUE"},
		{"anilist:1..100 -(has:tvdb format:tv)", planner.StrategySuperset, "anilist:1..100", "TRUE"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			plan := mustPlan(t, tc.query)
			if plan.Strategy != tc.strategy {
				t.Fatalf("strategy = %s, want %s", plan.Strategy, tc.strategy)
			}
			if got := plan.Local.String(); got != tc.local {
				t.Fatalf("local tree = %s, want %s", got, tc.local)
			}
			if got := plan.Remote.String(); got != tc.remote {
				t.Fatalf("remote tree = %s, want %s", got, tc.remote)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		query string
		field string
		op    capability.Operator
	}{
		{"imdb:1..5", "imdb", capability.OpRange},
		{"imdb:tt1..tt9", "imdb", capability.OpRange},
		{"tvdb_mappings:s1..s2", "tvdb_mappings", capability.OpRange},
		{"anidb:12*", "anidb", capability.OpWildcard},
		{"format:>TV", "format", capability.OpGt},
		{"has:anilist", "anilist", capability.OpHas},
		{"season:winter,fall", "season", capability.OpIn},
	}
	for _, tc := range cases {
		_, err := planner.ParseAndCompile(tc.query, capability.Static())
		var cerr *planner.CompileError
		if !errors.As(err, &cerr) {
			t.Fatalf("%q: expected CompileError, got %v", tc.query, err)
		}
		if cerr.Field != tc.field || cerr.Operator != tc.op {
			t.Fatalf("%q: got CompileError{%s,%s}, want {%s,%s}", tc.query, cerr.Field, cerr.Operator, tc.field, tc.op)
		}
	}
}

func TestParseErrorsPassThrough(t *testing.T) {
	_, err := planner.ParseAndCompile(`"open`, capability.Static())
	var perr *querylang.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestRelaxPolarity(t *testing.T) {
	root, err := querylang.Parse("-(anidb:1 format:tv) | -(-year:2019)", capability.Static())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Under one negation the remote leaf becomes FALSE, so And(anidb:1,FALSE)
	// folds to FALSE and Not(FALSE) to TRUE. The whole OR is then TRUE.
	if got := planner.Relax(root, capability.DomainLocal); !planner.IsTrue(got) {
		t.Fatalf("expected TRUE, got %s", got)
	}
	local, _ := querylang.Parse("-(anidb:1 | format:tv)", capability.Static())
	if got := planner.Relax(local, capability.DomainLocal).String(); got != "Not(anidb:1)" {
		t.Fatalf("unexpected relaxed tree %s", got)
	}
}

func TestSimplify(t *testing.T) {
	tree := &querylang.And{Children: []querylang.Node{
		querylang.True,
		&querylang.And{Children: []querylang.Node{&querylang.Title{Text: "a"}, &querylang.Title{Text: "b"}}},
		&querylang.Not{Child: &querylang.Not{Child: &querylang.Title{Text: "c"}}},
	}}
	if got := planner.Simplify(tree).String(); got != `And("a","b","c")` {
		t.Fatalf("Simplify = %s", got)
	}
	or := &querylang.Or{Children: []querylang.Node{querylang.False, querylang.False}}
	if !planner.IsFalse(planner.Simplify(or)) {
		t.Fatal("expected Or of FALSE to fold to FALSE")
	}
}

func intPtr(v int) *int { return &v }

func TestEvaluateThreeValued(t *testing.T) {
	row := mapping.Mapping{AniListID: 5, TVDBID: intPtr(100)}
	media := &anilist.Media{ID: 5, Format: "TV", SeasonYear: intPtr(2019), Title: anilist.Title{Romaji: "Dororo"}}
	cases := []struct {
		query     string
		withMedia planner.Truth
		without   planner.Truth
	}{
		{"tvdb:100", planner.True, planner.True},
		{"format:tv", planner.True, planner.Unknown},
		{"tvdb:100 format:movie", planner.False, planner.Unknown},
		{"tvdb:1 format:tv", planner.False, planner.False},
		{"tvdb:100 | format:movie", planner.True, planner.True},
		{"tvdb:1 | format:tv", planner.True, planner.Unknown},
		{"-format:tv", planner.False, planner.Unknown},
		{"Dororo year:2019", planner.True, planner.Unknown},
		{`"Cowboy Bebop"`, planner.False, planner.Unknown},
	}
	for _, tc := range cases {
		root, err := querylang.Parse(tc.query, capability.Static())
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.query, err)
		}
		if got := planner.Evaluate(root, planner.Facts{Mapping: row, Media: media}); got != tc.withMedia {
			t.Fatalf("%q with media = %s, want %s", tc.query, got, tc.withMedia)
		}
		if got := planner.Evaluate(root, planner.Facts{Mapping: row}); got != tc.without {
			t.Fatalf("%q without media = %s, want %s", tc.query, got, tc.without)
		}
	}
}

func TestMatchLocalFields(t *testing.T) {
	row := mapping.Mapping{
		AniListID:    150,
		IMDbIDs:      []string{"tt0123456"},
		MALIDs:       []int{3, 9},
		TVDBMappings: map[string]string{"s1": "e1-e12", "s2": "e13-"},
		Sources:      []string{"mappings.json"},
	}
	cases := map[string]bool{
		"anilist:100..210":        true,
		"anilist:100..149":        false,
		"-(anilist:100..200)":     false,
		"-anilist:5":              true,
		"imdb:TT0123*":            true,
		"imdb:tt012345?":          true,
		"imdb:tt1,tt0123456":      true,
		"mal:>8":                  true,
		"mal:<3":                  false,
		"has:tvdb_mappings":       true,
		"-has:tmdb_mappings":      true,
		"tvdb_mappings:s2":        true,
		"tvdb_mappings:s3":        false,
		"tvdb_mappings:s1=e1-e12": true,
		"tvdb_mappings:s1=e1-e13": false,
		"tvdb_mappings:s*=e13*":   true,
		"source:MAPPINGS.JSON":    true,
		"custom:false":            true,
		"custom:true":             false,
		"has:anidb":               false,
	}
	for query, want := range cases {
		root, err := querylang.Parse(query, capability.Static())
		if err != nil {
			t.Fatalf("Parse(%q): %v", query, err)
		}
		if got := planner.Matches(root, planner.Facts{Mapping: row}); got != want {
			t.Fatalf("%q: got %v, want %v", query, got, want)
		}
	}
}

func TestMerge(t *testing.T) {
	local := roaring.BitmapOf(1, 2, 3)
	remote := roaring.BitmapOf(2, 3, 4)

	cases := []struct {
		strategy planner.Strategy
		local    *roaring.Bitmap
		remote   *roaring.Bitmap
		want     []int
	}{
		{planner.StrategyLocal, local, remote, []int{1, 2, 3}},
		{planner.StrategyRemote, local, remote, []int{2, 3, 4}},
		{planner.StrategyPushdown, local, remote, []int{2, 3}},
		{planner.StrategySuperset, local, remote, []int{2, 3}},
		{planner.StrategyPushdown, nil, remote, []int{2, 3, 4}},
		{planner.StrategyPushdown, nil, nil, []int{}},
	}
	for _, tc := range cases {
		got := planner.IDs(planner.Merge(tc.strategy, tc.local, tc.remote))
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("Merge(%s) mismatch (-want +got):\n%s", tc.strategy, diff)
		}
	}
	if local.GetCardinality() != 3 || remote.GetCardinality() != 3 {
		t.Fatal("Merge must not modify its inputs")
	}
}
