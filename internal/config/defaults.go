package config

const (
	defaultDataDir          = "~/.local/share/anibridge"
	defaultLogDir           = "~/.local/share/anibridge/logs"
	defaultAniListBaseURL   = "https://graphql.anilist.co"
	defaultAniListTimeout   = 15
	defaultAniListPageSize  = 50
	defaultConcurrency      = 4
	defaultMaxCandidates    = 2000
	defaultMaxRemoteResults = 250
	defaultPageSize         = 25
	defaultMaxPageSize      = 250
	defaultResolveCacheSize = 1024
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		AniList: AniList{
			BaseURL:        defaultAniListBaseURL,
			TimeoutSeconds: defaultAniListTimeout,
			PageSize:       defaultAniListPageSize,
		},
		Search: Search{
			Concurrency:      defaultConcurrency,
			MaxCandidates:    defaultMaxCandidates,
			MaxRemoteResults: defaultMaxRemoteResults,
			DefaultPageSize:  defaultPageSize,
			MaxPageSize:      defaultMaxPageSize,
		},
		Mappings: Mappings{
			ResolveCacheSize: defaultResolveCacheSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
