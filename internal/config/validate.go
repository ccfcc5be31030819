package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAniList(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateMappings(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAniList() error {
	parsed, err := url.Parse(c.AniList.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("anilist.base_url %q must be an absolute URL", c.AniList.BaseURL)
	}
	if c.AniList.TimeoutSeconds <= 0 {
		return errors.New("anilist.timeout_seconds must be positive")
	}
	if c.AniList.PageSize <= 0 || c.AniList.PageSize > 50 {
		return errors.New("anilist.page_size must be between 1 and 50")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.Concurrency <= 0 {
		return errors.New("search.concurrency must be positive")
	}
	if c.Search.MaxCandidates <= 0 {
		return errors.New("search.max_candidates must be positive")
	}
	if c.Search.MaxRemoteResults <= 0 {
		return errors.New("search.max_remote_results must be positive")
	}
	if c.Search.MaxPageSize <= 0 {
		return errors.New("search.max_page_size must be positive")
	}
	if c.Search.DefaultPageSize <= 0 || c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size must be between 1 and %d", c.Search.MaxPageSize)
	}
	return nil
}

func (c *Config) validateMappings() error {
	if c.Mappings.ResolveCacheSize <= 0 {
		return errors.New("mappings.resolve_cache_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
