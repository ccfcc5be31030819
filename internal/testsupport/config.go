package testsupport

import (
	"path/filepath"
	"testing"

	"anibridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.AniList.BaseURL = "http://127.0.0.1:0/graphql"
	cfgVal.AniList.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAniListURL points the AniList client at a test server.
func WithAniListURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AniList.BaseURL = url
	}
}

// WithStrictSearch makes remote failures fail queries.
func WithStrictSearch() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Search.Strict = true
	}
}

// WithMaxCandidates overrides the superset candidate cap.
func WithMaxCandidates(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Search.MaxCandidates = n
	}
}

// WithMaxRemoteResults overrides the per-search AniList result cap.
func WithMaxRemoteResults(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Search.MaxRemoteResults = n
	}
}

// WithUpstreamFiles writes each named dataset file under the base directory
// and registers it as an upstream path. Files are written in name order.
func WithUpstreamFiles(files map[string]string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range sortedKeys(files) {
			path := filepath.Join(b.baseDir, "upstream", name)
			WriteFile(b.t, path, files[name])
			b.cfg.Mappings.UpstreamPaths = append(b.cfg.Mappings.UpstreamPaths, path)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
