package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"anibridge/internal/anilist"
	"anibridge/internal/capability"
	"anibridge/internal/config"
	"anibridge/internal/dataset"
	"anibridge/internal/logging"
	"anibridge/internal/mapping"
	"anibridge/internal/planner"
	"anibridge/internal/resolver"
	"anibridge/internal/search"
	"anibridge/internal/store"
)

// Options wires a Service.
type Options struct {
	Config *config.Config
	Store  *store.Store
	// AniList may be nil; remote predicates then fail as unavailable.
	AniList anilist.Searcher
	// Capabilities defaults to the builtin registry.
	Capabilities *capability.Cache
	Logger       *slog.Logger
}

// Service exposes the query and override operations.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	caps     *capability.Cache
	exec     *search.Executor
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// NewService builds a service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, errors.New("api: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("api: store is required")
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = capability.NewCache(nil)
	}
	res, err := resolver.New(opts.Store, opts.Config.Mappings.ResolveCacheSize, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      opts.Config,
		store:    opts.Store,
		caps:     caps,
		exec:     search.NewExecutor(opts.Store, opts.AniList, opts.Config.Search, opts.Logger),
		resolver: res,
		logger:   logging.NewComponentLogger(opts.Logger, "api"),
	}, nil
}

// ListFieldCapabilities returns every queryable field.
func (s *Service) ListFieldCapabilities(ctx context.Context) ([]FieldCapability, error) {
	reg, err := s.caps.Get(ctx)
	if err != nil {
		return nil, err
	}
	return FromCapabilities(reg.List()), nil
}

// RefreshCapabilities drops the cached registry and loads it again.
func (s *Service) RefreshCapabilities(ctx context.Context) ([]FieldCapability, error) {
	reg, err := s.caps.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return FromCapabilities(reg.List()), nil
}

// ParseAndCompile turns query into an executable plan. Failures are
// *querylang.ParseError or *planner.CompileError.
func (s *Service) ParseAndCompile(ctx context.Context, query string) (*planner.Plan, error) {
	reg, err := s.caps.Get(ctx)
	if err != nil {
		return nil, err
	}
	return planner.ParseAndCompile(query, reg)
}

// Execute runs plan and attaches the effective view of every stored row.
func (s *Service) Execute(ctx context.Context, plan *planner.Plan, page search.Page, opts search.ExecOptions) (*SearchResult, error) {
	ctx, correlationID := withCorrelation(ctx)
	res, err := s.exec.Execute(ctx, plan, page, opts)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, res, correlationID)
}

// Search parses, compiles and executes query.
func (s *Service) Search(ctx context.Context, query string, page search.Page, opts search.ExecOptions) (*SearchResult, error) {
	plan, err := s.ParseAndCompile(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, plan, page, opts)
}

func (s *Service) decorate(ctx context.Context, res *search.Result, correlationID string) (*SearchResult, error) {
	out := fromResult(res, correlationID)
	for _, row := range res.Rows {
		dto := SearchRow{AniListID: row.AniListID, Score: row.Score, Media: row.Media}
		if row.Media != nil {
			dto.Title = row.Media.DisplayTitle()
		}
		if row.Mapping != nil {
			eff, err := s.resolver.Effective(ctx, row.AniListID)
			switch {
			case errors.Is(err, resolver.ErrNotFound):
			case err != nil:
				return nil, err
			default:
				dto.Effective = eff
			}
		}
		out.Rows = append(out.Rows, dto)
	}
	logging.WithContext(ctx, s.logger).Info("query executed",
		logging.String(logging.FieldEventType, "query_executed"),
		logging.String(logging.FieldQuery, res.Query),
		logging.String(logging.FieldStrategy, string(res.Strategy)),
		logging.Int("total", res.Total),
		logging.Int("warnings", len(res.Warnings)),
	)
	return out, nil
}

func withCorrelation(ctx context.Context) (context.Context, string) {
	if id, ok := logging.CorrelationIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return logging.WithCorrelationID(ctx, id), id
}

// ResolveEffective returns the effective mapping of an AniList id.
func (s *Service) ResolveEffective(ctx context.Context, anilistID int) (*mapping.Effective, error) {
	return s.resolver.Effective(ctx, anilistID)
}

// ApplyTargetDeltas merges deltas into the override of source and returns the
// resulting targets.
func (s *Service) ApplyTargetDeltas(ctx context.Context, source mapping.Descriptor, deltas []mapping.TargetDelta) ([]mapping.Target, error) {
	return s.resolver.ApplyTargetDeltas(ctx, source, deltas)
}

// PutOverride replaces the override of an AniList id.
func (s *Service) PutOverride(ctx context.Context, anilistID int, o mapping.Override) (*mapping.Effective, error) {
	return s.resolver.PutOverride(ctx, anilistID, o)
}

// DeleteOverride removes the override of an AniList id.
func (s *Service) DeleteOverride(ctx context.Context, anilistID int) (bool, error) {
	return s.resolver.DeleteOverride(ctx, anilistID)
}

// Import loads the upstream mapping files. Empty opts.Paths uses the
// configured upstream paths.
func (s *Service) Import(ctx context.Context, opts dataset.Options) (*dataset.Result, error) {
	return dataset.Import(ctx, s.cfg, s.store, opts, s.logger)
}

// Stats summarizes the mapping store.
func (s *Service) Stats(ctx context.Context) (StatsResponse, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return StatsResponse{}, err
	}
	return FromStats(stats, s.store.Path()), nil
}

// Session runs queries for one interactive client. Starting a query cancels
// the one in flight, which then fails with search.ErrSuperseded.
type Session struct {
	svc *Service
	run *search.Session
}

// NewSession starts a client session.
func (s *Service) NewSession() *Session {
	return &Session{svc: s, run: search.NewSession(s.exec)}
}

// Search runs query, superseding any query still running in the session.
func (s *Session) Search(ctx context.Context, query string, page search.Page, opts search.ExecOptions) (*SearchResult, error) {
	plan, err := s.svc.ParseAndCompile(ctx, query)
	if err != nil {
		return nil, err
	}
	ctx, correlationID := withCorrelation(ctx)
	res, err := s.run.Run(ctx, plan, page, opts)
	if err != nil {
		return nil, err
	}
	return s.svc.decorate(ctx, res, correlationID)
}

// Cancel stops the query in flight.
func (s *Session) Cancel() {
	s.run.Cancel()
}
