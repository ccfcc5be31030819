package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"anibridge/internal/anilist"
	"anibridge/internal/config"
	"anibridge/internal/logging"
	"anibridge/internal/mapping"
	"anibridge/internal/planner"
	"anibridge/internal/querylang"
	"anibridge/internal/store"
	"anibridge/internal/textutil"
)

// mediaBatchSize matches AniList's per-request id ceiling.
const mediaBatchSize = 50

// RowStore is the mapping store surface search needs.
type RowStore interface {
	Filter(ctx context.Context, tree querylang.Node, page store.Page) ([]mapping.Mapping, error)
	FilterIDs(ctx context.Context, tree querylang.Node) (*roaring.Bitmap, error)
	Count(ctx context.Context, tree querylang.Node) (int, error)
	GetMappings(ctx context.Context, ids []int) ([]mapping.Mapping, error)
}

// Page selects a window of ranked results. A zero Limit uses the configured
// default page size.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ExecOptions adjust one execution.
type ExecOptions struct {
	// Strict turns remote failures into errors. The configured strict
	// setting applies as well.
	Strict bool
}

// Row is one result. Mapping is nil for AniList ids with no stored mapping.
// Media is set when AniList metadata was fetched for the row.
type Row struct {
	AniListID int              `json:"anilist_id"`
	Mapping   *mapping.Mapping `json:"mapping,omitempty"`
	Media     *anilist.Media   `json:"media,omitempty"`
	Score     float64          `json:"score,omitempty"`
}

// Result is one page of an executed plan.
type Result struct {
	Query    string           `json:"query"`
	Strategy planner.Strategy `json:"strategy"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	Rows     []Row            `json:"rows"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Executor runs compiled plans.
type Executor struct {
	rows   RowStore
	remote anilist.Searcher
	cfg    config.Search
	logger *slog.Logger
}

// NewExecutor builds an executor. remote may be nil, in which case every
// remote lookup fails as unavailable.
func NewExecutor(rows RowStore, remote anilist.Searcher, cfg config.Search, logger *slog.Logger) *Executor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Executor{
		rows:   rows,
		remote: remote,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "search"),
	}
}

// run carries the state of one execution.
type run struct {
	e      *Executor
	plan   *planner.Plan
	strict bool
	logger *slog.Logger

	mu       sync.Mutex
	warnings []string
	media    map[int]*anilist.Media
	mappings map[int]*mapping.Mapping
}

// Execute runs plan and returns the requested page of ranked rows.
func (e *Executor) Execute(ctx context.Context, plan *planner.Plan, page Page, opts ExecOptions) (*Result, error) {
	if plan == nil {
		return nil, errors.New("search: nil plan")
	}
	page = e.normalizePage(page)
	r := &run{
		e:        e,
		plan:     plan,
		strict:   opts.Strict || e.cfg.Strict,
		logger:   logging.WithContext(ctx, e.logger),
		media:    make(map[int]*anilist.Media),
		mappings: make(map[int]*mapping.Mapping),
	}
	r.logger.Debug("executing query",
		logging.String(logging.FieldQuery, plan.Query),
		logging.String(logging.FieldStrategy, string(plan.Strategy)),
		logging.String("plan", plan.Explain()),
	)

	var (
		ids *roaring.Bitmap
		err error
	)
	switch plan.Strategy {
	case planner.StrategyLocal:
		return r.executeLocal(ctx, page)
	case planner.StrategyRemote:
		var remote *roaring.Bitmap
		remote, err = r.remoteIDs(ctx, plan.Remote)
		ids = planner.Merge(plan.Strategy, nil, remote)
	case planner.StrategyPushdown:
		ids, err = r.pushdown(ctx)
	case planner.StrategySuperset:
		ids, err = r.superset(ctx)
	default:
		err = fmt.Errorf("search: unknown strategy %q", plan.Strategy)
	}
	if err != nil {
		return nil, err
	}
	return r.finish(ctx, ids, page)
}

func (e *Executor) normalizePage(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = e.cfg.DefaultPageSize
	}
	if e.cfg.MaxPageSize > 0 && p.Limit > e.cfg.MaxPageSize {
		p.Limit = e.cfg.MaxPageSize
	}
	if p.Limit <= 0 {
		p.Limit = 25
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (r *run) executeLocal(ctx context.Context, page Page) (*Result, error) {
	total, err := r.e.rows.Count(ctx, r.plan.Local)
	if err != nil {
		return nil, err
	}
	rows, err := r.e.rows.Filter(ctx, r.plan.Local, store.Page{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return nil, err
	}
	result := r.newResult(total, page)
	for i := range rows {
		result.Rows = append(result.Rows, Row{AniListID: rows[i].AniListID, Mapping: &rows[i]})
	}
	return result, nil
}

// pushdown intersects the local candidates with AniList search results. When
// the searches may not cover every local row, or the local side already fits
// under the remote cap, the full tree is evaluated over the local candidates.
func (r *run) pushdown(ctx context.Context) (*roaring.Bitmap, error) {
	local, err := r.e.rows.FilterIDs(ctx, r.plan.Local)
	if err != nil {
		return nil, err
	}
	if local.IsEmpty() {
		return local, nil
	}
	if int(local.GetCardinality()) <= r.e.cfg.MaxRemoteResults {
		return r.evaluateFallback(ctx, local, "local candidates within remote cap")
	}

	queries := remoteQueries(r.plan.Remote)
	if slices.ContainsFunc(queries, remoteQuery.broad) {
		return r.evaluateFallback(ctx, local, "remote query has no AniList filter")
	}
	remote, truncated, err := r.runQueries(ctx, queries)
	if err != nil {
		return nil, err
	}
	if truncated {
		return r.evaluateFallback(ctx, local, "remote results hit the cap")
	}
	return planner.Merge(r.plan.Strategy, local, remote), nil
}

func (r *run) evaluateFallback(ctx context.Context, local *roaring.Bitmap, reason string) (*roaring.Bitmap, error) {
	r.logger.Debug("pushdown evaluating local candidates",
		logging.Int("candidates", int(local.GetCardinality())),
		logging.String("reason", reason),
	)
	return r.evaluate(ctx, local)
}

// superset evaluates the full tree over the capped local candidate set.
func (r *run) superset(ctx context.Context) (*roaring.Bitmap, error) {
	candidates, err := r.e.rows.FilterIDs(ctx, r.plan.Local)
	if err != nil {
		return nil, err
	}
	return r.evaluate(ctx, candidates)
}

// evaluate loads mappings and metadata for candidates and keeps the rows the
// full tree accepts.
func (r *run) evaluate(ctx context.Context, candidates *roaring.Bitmap) (*roaring.Bitmap, error) {
	ids := planner.IDs(candidates)
	if limit := r.e.cfg.MaxCandidates; limit > 0 && len(ids) > limit {
		r.warn("candidate_cap",
			fmt.Sprintf("query matched %d local candidates; only the lowest %d AniList ids were evaluated", len(ids), limit),
			"narrow the query with more local fields",
		)
		ids = ids[:limit]
	}

	rows, err := r.e.rows.GetMappings(ctx, ids)
	if err != nil {
		return nil, err
	}
	r.rememberMappings(rows)
	if err := r.fetchMedia(ctx, ids); err != nil {
		return nil, err
	}

	out := roaring.New()
	for _, id := range ids {
		m := r.mappings[id]
		if m == nil {
			continue
		}
		if planner.Evaluate(r.plan.Root, planner.Facts{Mapping: *m, Media: r.media[id]}) == planner.True {
			out.Add(uint32(id))
		}
	}
	return out, nil
}

// remoteIDs answers a remote-only tree with AniList searches.
func (r *run) remoteIDs(ctx context.Context, tree querylang.Node) (*roaring.Bitmap, error) {
	queries := remoteQueries(tree)
	if slices.ContainsFunc(queries, remoteQuery.broad) {
		r.warn("remote_broad",
			fmt.Sprintf("part of the query has no AniList filter; only the first %d AniList entries were checked", r.e.cfg.MaxRemoteResults),
			"add a title, format, year, or genre",
		)
	}
	ids, truncated, err := r.runQueries(ctx, queries)
	if err != nil {
		return nil, err
	}
	if truncated {
		r.warn("remote_truncated",
			fmt.Sprintf("AniList returned at least %d results; later matches were dropped", r.e.cfg.MaxRemoteResults),
			"narrow the query",
		)
	}
	return ids, nil
}

// remoteQueries splits tree into AniList searches. A tree too wide for DNF
// becomes one unfiltered search checked against the whole tree.
func remoteQueries(tree querylang.Node) []remoteQuery {
	conjunctions, ok := toDNF(tree)
	if !ok {
		return []remoteQuery{{check: tree}}
	}
	queries := make([]remoteQuery, 0, len(conjunctions))
	for _, c := range conjunctions {
		queries = append(queries, translate(c))
	}
	return queries
}

// runQueries runs queries concurrently and reports whether any of them
// returned a full page of MaxRemoteResults.
func (r *run) runQueries(ctx context.Context, queries []remoteQuery) (*roaring.Bitmap, bool, error) {
	results := make([][]anilist.Media, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.e.cfg.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			media, err := r.search(gctx, q.query)
			if err != nil {
				return r.remoteFailure(gctx, "search", err)
			}
			results[i] = media
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	ids := roaring.New()
	truncated := false
	for i, media := range results {
		if len(media) >= r.e.cfg.MaxRemoteResults {
			truncated = true
		}
		for j := range media {
			m := &media[j]
			if planner.Evaluate(queries[i].check, planner.Facts{Media: m}) != planner.True {
				continue
			}
			ids.Add(uint32(m.ID))
			r.rememberMedia(m)
		}
	}
	return ids, truncated, nil
}

func (r *run) search(ctx context.Context, q anilist.Query) ([]anilist.Media, error) {
	if r.e.remote == nil {
		return nil, errors.New("no AniList client configured")
	}
	return r.e.remote.Search(ctx, q, r.e.cfg.MaxRemoteResults)
}

// fetchMedia loads metadata for ids in parallel batches. Failed batches leave
// their rows without metadata.
func (r *run) fetchMedia(ctx context.Context, ids []int) error {
	if r.e.remote == nil {
		return r.remoteFailure(ctx, "metadata", errors.New("no AniList client configured"))
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.e.cfg.Concurrency)
	for start := 0; start < len(ids); start += mediaBatchSize {
		batch := ids[start:min(start+mediaBatchSize, len(ids))]
		g.Go(func() error {
			media, err := r.e.remote.FetchMedia(gctx, batch)
			if err != nil {
				return r.remoteFailure(gctx, "metadata", err)
			}
			for i := range media {
				r.rememberMedia(&media[i])
			}
			return nil
		})
	}
	return g.Wait()
}

// remoteFailure decides whether an AniList error aborts the run.
func (r *run) remoteFailure(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if r.strict {
		return fmt.Errorf("%w: %s: %w", ErrRemoteUnavailable, op, err)
	}
	r.warn("remote_unavailable",
		fmt.Sprintf("AniList %s failed; AniList conditions were treated as not matching: %v", op, err),
		"retry later or run with strict mode to fail instead",
	)
	return nil
}

func (r *run) warn(eventType, message, hint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.warnings, message) {
		return
	}
	r.warnings = append(r.warnings, message)
	logging.WarnWithContext(r.logger, message, eventType,
		logging.String(logging.FieldQuery, r.plan.Query),
		logging.String(logging.FieldErrorHint, hint),
	)
}

func (r *run) rememberMedia(m *anilist.Media) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.media[m.ID]; !ok {
		r.media[m.ID] = m
	}
}

func (r *run) rememberMappings(rows []mapping.Mapping) {
	for i := range rows {
		r.mappings[rows[i].AniListID] = &rows[i]
	}
}

func (r *run) newResult(total int, page Page) *Result {
	return &Result{
		Query:    r.plan.Query,
		Strategy: r.plan.Strategy,
		Total:    total,
		Limit:    page.Limit,
		Offset:   page.Offset,
		Rows:     []Row{},
		Warnings: r.warnings,
	}
}

// finish ranks ids, cuts the page, and attaches mappings and metadata.
func (r *run) finish(ctx context.Context, ids *roaring.Bitmap, page Page) (*Result, error) {
	ordered := planner.IDs(ids)
	scores := r.rank(ordered)

	result := r.newResult(len(ordered), page)
	if page.Offset >= len(ordered) {
		return result, nil
	}
	window := ordered[page.Offset:min(page.Offset+page.Limit, len(ordered))]

	var missing []int
	for _, id := range window {
		if _, ok := r.mappings[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		rows, err := r.e.rows.GetMappings(ctx, missing)
		if err != nil {
			return nil, err
		}
		r.rememberMappings(rows)
	}

	for _, id := range window {
		result.Rows = append(result.Rows, Row{
			AniListID: id,
			Mapping:   r.mappings[id],
			Media:     r.media[id],
			Score:     scores[id],
		})
	}
	return result, nil
}

// rank orders ids in place. Title queries rank by best title similarity,
// everything else and ties by ascending id.
func (r *run) rank(ids []int) map[int]float64 {
	if len(r.plan.Titles) == 0 {
		return nil
	}
	scores := make(map[int]float64, len(ids))
	for _, id := range ids {
		m := r.media[id]
		if m == nil {
			continue
		}
		titles := m.Titles()
		best := 0.0
		for _, q := range r.plan.Titles {
			best = max(best, textutil.BestSimilarity(q, titles))
		}
		scores[id] = best
	}
	slices.SortStableFunc(ids, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return scores
}
