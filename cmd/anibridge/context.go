package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"anibridge/internal/anilist"
	"anibridge/internal/api"
	"anibridge/internal/capability"
	"anibridge/internal/config"
	"anibridge/internal/logging"
	"anibridge/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	newSearcher func(cfg *config.Config) (searcher, error)
}

// searcherFactory builds the AniList client; tests replace it.
var searcherFactory = newAniListClient

// searcher is the AniList surface the CLI wires into the service.
type searcher interface {
	anilist.Searcher
	capability.EnumSource
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		jsonFlag:    jsonFlag,
		newSearcher: searcherFactory,
	}
}

func newAniListClient(cfg *config.Config) (searcher, error) {
	return anilist.New(cfg.AniList.BaseURL,
		anilist.WithToken(cfg.AniList.Token),
		anilist.WithPageSize(cfg.AniList.PageSize),
		anilist.WithTimeout(cfg.AniListTimeout()),
	)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// serviceOptions tune withService.
type serviceOptions struct {
	// enums loads genre and tag values from AniList into the registry.
	enums bool
}

// withService opens the store, wires the service, and closes the store when
// fn returns.
func (c *commandContext) withService(cmd *cobra.Command, opts serviceOptions, fn func(context.Context, *api.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.loggerFor(cfg)

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open mapping store: %w", err)
	}
	defer st.Close()

	remote, err := c.newSearcher(cfg)
	if err != nil {
		return fmt.Errorf("create anilist client: %w", err)
	}
	caps := capability.NewCache(nil)
	if opts.enums {
		caps = capability.NewCache(capability.EnumLoader(remote, logger))
	}

	svc, err := api.NewService(api.Options{
		Config:       cfg,
		Store:        st,
		AniList:      remote,
		Capabilities: caps,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
