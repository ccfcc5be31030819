package capability

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader builds a registry.
type Loader func(ctx context.Context) (*Registry, error)

// StaticLoader returns the builtin registry.
func StaticLoader(context.Context) (*Registry, error) {
	return Static(), nil
}

// EnumSource supplies the closed value sets AniList publishes for genres and
// tags.
type EnumSource interface {
	Genres(ctx context.Context) ([]string, error)
	Tags(ctx context.Context) ([]string, error)
}

// EnumLoader upgrades the genre and tag fields of the builtin registry to
// enums using values fetched from src. Fetch failures leave the field as a
// free-form string and are logged.
func EnumLoader(src EnumSource, logger *slog.Logger) Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) (*Registry, error) {
		reg := Static()
		if src == nil {
			return reg, nil
		}
		genres, err := src.Genres(ctx)
		if err != nil {
			logger.Warn("genre collection unavailable; genre stays free-form", slog.Any("error", err))
		} else if reg, err = reg.WithEnumValues(FieldGenre, genres); err != nil {
			return nil, err
		}
		tags, err := src.Tags(ctx)
		if err != nil {
			logger.Warn("tag collection unavailable; tag stays free-form", slog.Any("error", err))
		} else if reg, err = reg.WithEnumValues(FieldTag, tags); err != nil {
			return nil, err
		}
		return reg, nil
	}
}

const cacheKey = "registry"

// Cache memoizes a registry for the process lifetime.
type Cache struct {
	load  Loader
	group singleflight.Group

	mu      sync.RWMutex
	current *Registry
	gen     uint64
}

// NewCache wraps load. A nil loader serves the builtin registry.
func NewCache(load Loader) *Cache {
	if load == nil {
		load = StaticLoader
	}
	return &Cache{load: load}
}

// Get returns the memoized registry, loading it on first use. Concurrent
// callers share a single load.
func (c *Cache) Get(ctx context.Context) (*Registry, error) {
	c.mu.RLock()
	reg, gen := c.current, c.gen
	c.mu.RUnlock()
	if reg != nil {
		return reg, nil
	}

	ch := c.group.DoChan(cacheKey, func() (any, error) {
		// Detach from the first caller so its cancellation does not fail
		// everyone waiting on the shared load.
		loaded, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, errors.New("capability loader returned no registry")
		}
		c.mu.Lock()
		if c.gen == gen {
			c.current = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Registry), nil
	}
}

// Invalidate drops the memoized registry; the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget(cacheKey)
}

// Refresh forces a reload and returns the new registry.
func (c *Cache) Refresh(ctx context.Context) (*Registry, error) {
	c.Invalidate()
	return c.Get(ctx)
}
