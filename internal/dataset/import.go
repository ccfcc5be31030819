package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"anibridge/internal/config"
	"anibridge/internal/logging"
	"anibridge/internal/planner"
	"anibridge/internal/store"
)

// ErrImportLocked reports that another import holds the lock.
var ErrImportLocked = errors.New("another import is running")

// lockRetryDelay is how often a waiting import retries the lock.
const lockRetryDelay = 200 * time.Millisecond

// Options tune an import.
type Options struct {
	// Paths overrides cfg.Mappings.UpstreamPaths when set.
	Paths []string
	// Prune removes upstream rows missing from the new dataset.
	Prune bool
	// Wait blocks until the lock is free instead of failing fast.
	Wait bool
}

// Result summarizes an import.
type Result struct {
	Files    []string `json:"files"`
	Imported int      `json:"imported"`
	Pruned   int      `json:"pruned"`
	Skipped  int      `json:"skipped"`
}

// Import loads the configured upstream files and writes them to st under the
// import lock.
func Import(ctx context.Context, cfg *config.Config, st *store.Store, opts Options, logger *slog.Logger) (*Result, error) {
	logger = logging.NewComponentLogger(logging.WithContext(ctx, logger), "dataset")

	paths := opts.Paths
	if len(paths) == 0 {
		paths = cfg.Mappings.UpstreamPaths
	}
	if len(paths) == 0 {
		return nil, errors.New("no upstream mapping files configured (set mappings.upstream_paths or pass files)")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(cfg.ImportLockPath())
	var (
		locked bool
		err    error
	)
	if opts.Wait {
		locked, err = lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = lock.TryLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !locked {
		return nil, ErrImportLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release import lock", logging.Error(err))
		}
	}()

	ds, err := Load(paths...)
	if err != nil {
		return nil, err
	}
	if ds.Skipped > 0 {
		logging.WarnWithContext(logger, "skipped dataset entries with non-numeric keys", "dataset_skipped",
			logging.Int("skipped", ds.Skipped),
			logging.String(logging.FieldErrorHint, "keys must be AniList ids"),
		)
	}

	imported, err := st.UpsertMappings(ctx, ds.Mappings)
	if err != nil {
		return nil, err
	}
	result := &Result{Files: ds.Files, Imported: imported, Skipped: ds.Skipped}

	if opts.Prune {
		keep := make([]int, len(ds.Mappings))
		for i, m := range ds.Mappings {
			keep[i] = m.AniListID
		}
		result.Pruned, err = st.PruneUpstream(ctx, planner.BitmapOf(keep))
		if err != nil {
			return nil, err
		}
	}

	logger.Info("mapping import complete",
		logging.Int("files", len(ds.Files)),
		logging.Int("imported", result.Imported),
		logging.Int("pruned", result.Pruned),
	)
	return result, nil
}
