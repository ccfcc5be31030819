package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"anibridge/internal/api"
	"anibridge/internal/config"
	"anibridge/internal/mapping"
	"anibridge/internal/testsupport"
)

const upstreamJSON = `{
  "1": {"anidb_id": 23, "tvdb_id": 76885, "mal_id": 1, "imdb_id": "tt0213338", "tvdb_mappings": {"s1": ""}},
  "5": {"anidb_id": 5, "tmdb_movie_id": 11299, "mal_id": 5},
  "101347": {"anidb_id": 14085, "tvdb_id": 328592, "mal_id": 37520, "tvdb_mappings": {"s1": "e1-e24"}}
}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	anilist    *testsupport.FakeAniList
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("ANILIST_TOKEN", "")

	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamFiles(map[string]string{"mappings.json": upstreamJSON}))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, configPath, string(data))

	fake := testsupport.NewFakeAniList(testsupport.SampleMedia()...)
	previous := searcherFactory
	searcherFactory = func(*config.Config) (searcher, error) { return fake, nil }
	t.Cleanup(func() { searcherFactory = previous })

	return &cliTestEnv{cfg: cfg, configPath: configPath, anilist: fake}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, env, "", args...)
	if err != nil {
		t.Fatalf("%v: %v (stderr %q)", args, err, stderr)
	}
	return out
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestImportQueryAndStats(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "import")
	requireContains(t, out, "Imported 3 mappings from 1 files")

	out = mustRunCLI(t, env, "query", "tvdb:328592 | anidb:5")
	requireContains(t, out, "101347")
	requireContains(t, out, "11299")
	requireContains(t, out, "Showing 1-2 of 2 (local)")

	out = mustRunCLI(t, env, "--json", "query", "Dororo", "year:2019")
	var result api.SearchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode query json: %v\n%s", err, out)
	}
	if result.Strategy != "remote" || len(result.Rows) != 1 || result.Rows[0].AniListID != 101347 {
		t.Fatalf("unexpected remote result %+v", result)
	}
	if result.CorrelationID == "" {
		t.Fatal("expected a correlation id")
	}

	out = mustRunCLI(t, env, "query", "anidb:999")
	requireContains(t, out, "No mappings matched")

	out = mustRunCLI(t, env, "--json", "stats")
	var stats api.StatsResponse
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats json: %v", err)
	}
	if stats.Mappings != 3 || stats.ByProvider[mapping.ProviderTVDB] != 2 || stats.ByProvider[mapping.ProviderTMDBMovie] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestQueryErrorsAndWarnings(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import")

	if _, _, err := runCLI(t, env, "", "query", "imdb:1..5"); err == nil || !strings.Contains(err.Error(), "imdb") {
		t.Fatalf("expected compile error naming imdb, got %v", err)
	}
	if _, _, err := runCLI(t, env, "", "query", `"open`); err == nil {
		t.Fatal("expected parse error for unterminated quote")
	}

	env.anilist.FailFetch(os.ErrDeadlineExceeded)
	out, stderr, err := runCLI(t, env, "", "query", "--explain", "anidb:5 | format:tv")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	requireContains(t, stderr, "strategy=superset")
	requireContains(t, stderr, "warning: AniList")
	requireContains(t, out, "Showing 1-1 of 1 (superset)")

	if _, _, err := runCLI(t, env, "", "query", "--strict", "anidb:5 | format:tv"); err == nil {
		t.Fatal("expected strict query to fail")
	}
}

func TestOverrideLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import")

	overridePath := filepath.Join(t.TempDir(), "override.yaml")
	testsupport.WriteFile(t, overridePath, "tvdb_id: 999\nanidb_id: null\n")

	out := mustRunCLI(t, env, "override", "set", "1", overridePath)
	requireContains(t, out, "999")
	requireContains(t, out, "custom")

	out = mustRunCLI(t, env, "query", "tvdb:999")
	requireContains(t, out, "Showing 1-1 of 1 (local)")
	out = mustRunCLI(t, env, "query", "has:anidb anilist:1")
	requireContains(t, out, "No mappings matched")

	out = mustRunCLI(t, env, "override", "show", "1")
	requireContains(t, out, `"tvdb_id": 999`)
	requireContains(t, out, `"anidb_id": null`)

	stdinOut, _, err := runCLI(t, env, `{"mal_id": [1, 2]}`, "--json", "override", "set", "1", "-")
	if err != nil {
		t.Fatalf("override set from stdin: %v", err)
	}
	var eff mapping.Effective
	if err := json.Unmarshal([]byte(stdinOut), &eff); err != nil {
		t.Fatalf("decode effective: %v", err)
	}
	if eff.Mapping.TVDBID == nil || *eff.Mapping.TVDBID != 76885 || len(eff.Mapping.MALIDs) != 2 {
		t.Fatalf("override set must replace the previous override, got %+v", eff.Mapping)
	}

	if _, _, err := runCLI(t, env, `{"unknown": 1}`, "override", "set", "1", "-"); err == nil {
		t.Fatal("expected unknown override field to be rejected")
	}

	out = mustRunCLI(t, env, "override", "delete", "1")
	requireContains(t, out, "Removed override for anilist 1")
	out = mustRunCLI(t, env, "override", "delete", "1")
	requireContains(t, out, "No override for anilist 1")
}

func TestTargetsApplyAndResolve(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import")

	out := mustRunCLI(t, env, "targets", "apply", "anilist:101347:tv",
		"--edge", "tvdb:328592:s2=25-36:1-12",
		"--edge", "tvdb:328592:s1=1-24")
	requireContains(t, out, "tvdb:328592:s2")
	requireContains(t, out, "25-36")
	requireContains(t, out, "deleted")

	out = mustRunCLI(t, env, "--json", "resolve", "101347")
	var eff mapping.Effective
	if err := json.Unmarshal([]byte(out), &eff); err != nil {
		t.Fatalf("decode effective: %v", err)
	}
	if eff.Override == nil || len(eff.Override.Targets) == 0 {
		t.Fatalf("expected stored target deltas, got %+v", eff.Override)
	}

	out = mustRunCLI(t, env, "resolve", "101347")
	requireContains(t, out, "anilist:101347:tv")
	requireContains(t, out, "tvdb_mappings")

	if _, _, err := runCLI(t, env, "", "targets", "apply", "anilist:101347:tv", "--edge", "tvdb:328592:s2"); err == nil {
		t.Fatal("expected malformed edge to fail")
	}
	if _, _, err := runCLI(t, env, "", "resolve", "424242"); err == nil {
		t.Fatal("expected unknown id to fail")
	}
}

func TestParseEdgeFlagsGroupsByTarget(t *testing.T) {
	deltas, err := parseEdgeFlags([]string{
		"tvdb:1:s1=1-12:1-12",
		"tmdb_show:2:s1=1-12:1-12",
		"tvdb:1:s1=13-",
	})
	if err != nil {
		t.Fatalf("parseEdgeFlags: %v", err)
	}
	if len(deltas) != 2 || deltas[0].Target.String() != "tvdb:1:s1" || len(deltas[0].Edges) != 2 {
		t.Fatalf("unexpected grouping %+v", deltas)
	}
	if deltas[0].Edges[1].Destination != nil || !deltas[0].Edges[1].Source.IsOpen() {
		t.Fatalf("expected open delete edge, got %+v", deltas[0].Edges[1])
	}
}

func TestCapabilitiesCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "capabilities")
	requireContains(t, out, "tvdb_mappings")
	requireContains(t, out, "remote")

	out = mustRunCLI(t, env, "--json", "fields", "--anilist")
	var fields []api.FieldCapability
	if err := json.Unmarshal([]byte(out), &fields); err != nil {
		t.Fatalf("decode capabilities: %v", err)
	}
	for _, f := range fields {
		if f.Key == "genre" {
			requireContains(t, strings.Join(f.Values, ","), "Mecha")
			return
		}
	}
	t.Fatal("genre field missing")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	mustRunCLI(t, env, "config", "init", "--path", target, "--overwrite")
}
