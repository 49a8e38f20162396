// Package service orchestrates ranking and history requests over the fact
// database, the identity resolver and the ranking key cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/partystats/internal/adapters/repository"
	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/internal/domain/ranking"
	"github.com/okian/partystats/internal/domain/votes"
	"github.com/okian/partystats/internal/warmup"
	"github.com/okian/partystats/pkg/logger"
	"github.com/okian/partystats/pkg/metrics"
)

// Catalog is the read side of the fact database.
type Catalog interface {
	votes.Reader

	ElectionByCode(ctx context.Context, code string) (model.Election, error)
	PartyByCode(ctx context.Context, code string) (model.Party, error)
	PartyIDsInElection(ctx context.Context, electionCode string) ([]string, error)
	Region(ctx context.Context, code string) (model.Region, error)
	Prefecture(ctx context.Context, code string) (model.Prefecture, error)
	Municipality(ctx context.Context, code string) (model.Municipality, error)
	PrefecturesInRegion(ctx context.Context, regionCode string) ([]string, error)
	Municipalities(ctx context.Context) ([]model.Municipality, error)
	LineageEdges(ctx context.Context) ([]model.LineageEdge, error)
	Stats(ctx context.Context) (repository.Stats, error)
	Ping(ctx context.Context) error
}

// KV is the ranking cache backend.
type KV interface {
	ranking.Backend
	Len(ctx context.Context) (int, error)
}

// Service answers ranking and history questions.
type Service struct {
	mu sync.RWMutex

	catalog Catalog
	kv      KV

	// Configuration
	pageSize    int
	cacheTTL    time.Duration
	coalesce    bool
	warmWorkers int

	// Built by Start
	lineage *area.Lineage
	votes   *votes.Store
	keys    *ranking.KeyCache
	pager   *ranking.Pager

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPageSize sets the number of rows per ranking page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithCacheTTL sets how long ranking key lists stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCoalescing toggles sharing of concurrent cache-miss computations.
func WithCoalescing(enabled bool) Option {
	return func(s *Service) {
		s.coalesce = enabled
	}
}

// WithWarmWorkers sets the size of the warm-up worker pool.
func WithWarmWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.warmWorkers = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Start must be called before use.
func New(catalog Catalog, kv KV, opts ...Option) *Service {
	s := &Service{
		catalog:     catalog,
		kv:          kv,
		pageSize:    ranking.DefaultPageSize,
		cacheTTL:    ranking.DefaultTTL,
		coalesce:    true,
		warmWorkers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the municipality lineage and builds the ranking components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	munis, err := s.catalog.Municipalities(ctx)
	if err != nil {
		return fmt.Errorf("load municipalities: %w", err)
	}
	edges, err := s.catalog.LineageEdges(ctx)
	if err != nil {
		return fmt.Errorf("load lineage: %w", err)
	}
	lineage, err := area.NewLineage(munis, edges)
	if err != nil {
		return fmt.Errorf("build lineage: %w", err)
	}
	metrics.UpdateLineageSize(lineage.Len())

	s.lineage = lineage
	s.votes = votes.NewStore(s.catalog, lineage)
	s.keys = ranking.NewKeyCache(s.kv, s.votes,
		ranking.WithTTL(s.cacheTTL),
		ranking.WithCoalescing(s.coalesce),
		ranking.WithLogger(s.logger.Named("keycache")),
	)
	s.pager = ranking.NewPager(s.pageSize)
	s.started = true

	s.logger.Info(ctx, "service started",
		logger.Int("municipalities", lineage.Len()),
		logger.Int("pageSize", s.pageSize),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Bool("coalesce", s.coalesce),
	)
	return nil
}

// Stop marks the service stopped. The catalog and cache are owned by the caller.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// PageSize returns the configured page size.
func (s *Service) PageSize() int { return s.pageSize }

// RankingRequest asks for one page of a ranking.
type RankingRequest struct {
	ElectionCode string
	PartyCode    string
	Scope        area.Scope
	Unit         area.Unit
	Sort         ranking.Sort
	Page         int
}

// RankingResult is a page of a ranking plus the resolved parameters.
type RankingResult struct {
	Election model.Election
	Party    model.Party
	Unit     area.Unit
	Sort     ranking.Sort
	Page     model.Page
}

// Ranking returns one page of areas ordered by the party's vote share.
func (s *Service) Ranking(ctx context.Context, req RankingRequest) (RankingResult, error) {
	if err := s.ready(); err != nil {
		return RankingResult{}, err
	}
	if redirect := legacyRegion(req.Scope); redirect != nil {
		return RankingResult{}, redirect
	}
	unit := req.Unit
	if unit == 0 {
		def, err := area.DefaultUnit(req.Scope.Kind())
		if err != nil {
			return RankingResult{}, err
		}
		unit = def
	}
	if _, err := area.ResolveUnit(req.Scope.Kind(), unit.String(), true); err != nil {
		return RankingResult{}, err
	}
	order := req.Sort
	if order == "" {
		order = ranking.SortDesc
	}

	election, party, err := s.resolve(ctx, req.ElectionCode, req.PartyCode, req.Scope)
	if err != nil {
		return RankingResult{}, err
	}

	var (
		keys        []string
		prefectures []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keys, err = s.keys.Keys(gctx, election.Code, party.ID, unit)
		return err
	})
	if req.Scope.Kind() == area.KindRegion {
		g.Go(func() error {
			var err error
			prefectures, err = s.catalog.PrefecturesInRegion(gctx, req.Scope.Code())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return RankingResult{}, err
	}

	narrowing, err := ranking.NewNarrowing(req.Scope, unit, prefectures)
	if err != nil {
		return RankingResult{}, err
	}
	ordered := ranking.Ordered(narrowing.Apply(keys), order)

	page, err := s.pager.Page(ctx, ordered, req.Page, func(ctx context.Context, codes []string) ([]model.VoteRow, error) {
		return s.votes.Votes(ctx, unit, election.Code, party.ID, codes)
	})
	if err != nil {
		return RankingResult{}, err
	}
	return RankingResult{Election: election, Party: party, Unit: unit, Sort: order, Page: page}, nil
}

// HistoryRequest asks for a party's results in one area across elections.
type HistoryRequest struct {
	PartyCode string
	Scope     area.Scope
}

// HistoryResult is the per-election series for one area.
type HistoryResult struct {
	Party  model.Party
	Unit   area.Unit
	Points []model.HistoryPoint
}

// History returns the party's results in the requested area, newest first.
func (s *Service) History(ctx context.Context, req HistoryRequest) (HistoryResult, error) {
	if err := s.ready(); err != nil {
		return HistoryResult{}, err
	}
	if redirect := legacyRegion(req.Scope); redirect != nil {
		return HistoryResult{}, redirect
	}

	var (
		party    model.Party
		partyErr error
		areaErr  error
		g        errgroup.Group
	)
	g.Go(func() error {
		party, partyErr = s.catalog.PartyByCode(ctx, req.PartyCode)
		return nil
	})
	g.Go(func() error {
		areaErr = s.checkArea(ctx, req.Scope)
		return nil
	})
	_ = g.Wait()
	if err := classify(partyErr, ErrPartyNotFound); err != nil {
		return HistoryResult{}, err
	}
	if err := classify(areaErr, ErrAreaNotFound); err != nil {
		return HistoryResult{}, err
	}

	unit, code := historyTarget(req.Scope)
	points, err := s.votes.History(ctx, unit, party.ID, code)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Party: party, Unit: unit, Points: points}, nil
}

// resolve checks election, party and area concurrently. All checks finish
// before any error is reported so the precedence is election, party, area.
// An empty partyCode skips the party check.
func (s *Service) resolve(ctx context.Context, electionCode, partyCode string, scope area.Scope) (model.Election, model.Party, error) {
	var (
		election    model.Election
		party       model.Party
		electionErr error
		partyErr    error
		aErr        error
		g           errgroup.Group
	)
	g.Go(func() error {
		election, electionErr = s.catalog.ElectionByCode(ctx, electionCode)
		return nil
	})
	if partyCode != "" {
		g.Go(func() error {
			party, partyErr = s.catalog.PartyByCode(ctx, partyCode)
			return nil
		})
	}
	g.Go(func() error {
		aErr = s.checkArea(ctx, scope)
		return nil
	})
	_ = g.Wait()

	if err := classify(electionErr, ErrElectionNotFound); err != nil {
		return model.Election{}, model.Party{}, err
	}
	if err := classify(partyErr, ErrPartyNotFound); err != nil {
		return model.Election{}, model.Party{}, err
	}
	if err := classify(aErr, ErrAreaNotFound); err != nil {
		return model.Election{}, model.Party{}, err
	}
	return election, party, nil
}

// checkArea verifies the scope's area exists. An archived municipality
// yields a RedirectError to its live ancestor.
func (s *Service) checkArea(ctx context.Context, scope area.Scope) error {
	switch scope.Kind() {
	case area.KindNational:
		return nil
	case area.KindRegion:
		_, err := s.catalog.Region(ctx, scope.Code())
		return err
	case area.KindPrefecture:
		_, err := s.catalog.Prefecture(ctx, scope.Code())
		return err
	case area.KindMunicipality:
		m, err := s.catalog.Municipality(ctx, scope.Code())
		if err != nil {
			return err
		}
		if s.lineage.IsLive(m.Code) {
			return nil
		}
		live, err := s.lineage.LiveAncestorOf(m.Code)
		if err != nil {
			return fmt.Errorf("%w: %w", repository.ErrNotFound, err)
		}
		return &RedirectError{Scope: area.MunicipalityScope{AreaCode: live}}
	default:
		return fmt.Errorf("%w: %s", area.ErrUnknownScope, scope.Kind())
	}
}

// classify maps a lookup failure to notFound, passing redirects and
// backing failures through unchanged.
func classify(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", notFound, err)
	}
	return err
}

func legacyRegion(scope area.Scope) error {
	if scope.Kind() != area.KindRegion {
		return nil
	}
	if pref, ok := area.CanonicalRegion(scope.Code()); ok {
		return &RedirectError{Scope: area.PrefectureScope{AreaCode: pref}}
	}
	return nil
}

func historyTarget(scope area.Scope) (area.Unit, string) {
	switch scope.Kind() {
	case area.KindRegion:
		return area.UnitRegion, scope.Code()
	case area.KindPrefecture:
		return area.UnitPrefecture, scope.Code()
	case area.KindMunicipality:
		return area.UnitMunicipality, scope.Code()
	default:
		return area.UnitNational, area.NationalAreaCode
	}
}

// Warm precomputes the key list of every election, party and rankable unit.
func (s *Service) Warm(ctx context.Context) (warmup.Summary, error) {
	if err := s.ready(); err != nil {
		return warmup.Summary{}, err
	}
	elections, err := s.catalog.Elections(ctx)
	if err != nil {
		return warmup.Summary{}, err
	}
	var jobs []warmup.Job
	for _, e := range elections {
		partyIDs, err := s.catalog.PartyIDsInElection(ctx, e.Code)
		if err != nil {
			return warmup.Summary{}, err
		}
		for _, p := range partyIDs {
			for u := area.UnitNational; u <= area.UnitMunicipality; u++ {
				if u.Rankable() {
					jobs = append(jobs, warmup.Job{ElectionCode: e.Code, PartyID: p, Unit: u})
				}
			}
		}
	}
	pool := warmup.NewPool(s.keys,
		warmup.WithWorkers(s.warmWorkers),
		warmup.WithLogger(s.logger.Named("warmup")),
	)
	return pool.Run(ctx, jobs), nil
}

// Ping reports whether the service is started and its fact database reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.catalog.Ping(ctx)
}

// Stats reports service and data sizes for monitoring.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	started := s.started
	lineage := s.lineage
	s.mu.RUnlock()

	stats := map[string]any{
		"started":  started,
		"pageSize": s.pageSize,
		"coalesce": s.coalesce,
		"cacheTTL": s.cacheTTL.String(),
	}
	if lineage != nil {
		stats["municipalities"] = lineage.Len()
	}
	n, err := s.kv.Len(ctx)
	if err != nil {
		return nil, err
	}
	stats["cachedKeyLists"] = n
	st, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats["data"] = st
	return stats, nil
}
