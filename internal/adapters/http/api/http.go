// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/ranking"
	"github.com/okian/partystats/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Ranking(ctx context.Context, req service.RankingRequest) (service.RankingResult, error)
	History(ctx context.Context, req service.HistoryRequest) (service.HistoryResult, error)
	Details(ctx context.Context, req service.DetailsRequest) (service.DetailsResult, error)
	Overview(ctx context.Context, req service.OverviewRequest) (service.OverviewResult, error)
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the public API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingHandler  *RankingHandler
	historyHandler  *HistoryHandler
	detailsHandler  *DetailsHandler
	overviewHandler *OverviewHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		rankingHandler:  NewRankingHandler(deps),
		historyHandler:  NewHistoryHandler(deps),
		detailsHandler:  NewDetailsHandler(deps),
		overviewHandler: NewOverviewHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/elections/{electionCode}/ranking/parties/{partyCode}", func(r chi.Router) {
		r.Get("/national", MetricsMiddleware(s.rankingHandler.Handle(area.KindNational), "ranking_national"))
		r.Get("/regions/{areaCode}", MetricsMiddleware(s.rankingHandler.Handle(area.KindRegion), "ranking_region"))
		r.Get("/prefectures/{areaCode}", MetricsMiddleware(s.rankingHandler.Handle(area.KindPrefecture), "ranking_prefecture"))
		r.Get("/cities/{areaCode}", MetricsMiddleware(s.rankingHandler.Handle(area.KindMunicipality), "ranking_city"))
	})

	r.Route("/parties/{partyCode}/history", func(r chi.Router) {
		r.Get("/national", MetricsMiddleware(s.historyHandler.Handle(area.KindNational), "history_national"))
		r.Get("/regions/{areaCode}", MetricsMiddleware(s.historyHandler.Handle(area.KindRegion), "history_region"))
		r.Get("/prefectures/{areaCode}", MetricsMiddleware(s.historyHandler.Handle(area.KindPrefecture), "history_prefecture"))
		r.Get("/cities/{areaCode}", MetricsMiddleware(s.historyHandler.Handle(area.KindMunicipality), "history_city"))
	})

	r.Route("/elections/{electionCode}/details/parties/{partyCode}", func(r chi.Router) {
		r.Get("/national", MetricsMiddleware(s.detailsHandler.Handle(area.KindNational), "details_national"))
		r.Get("/regions/{areaCode}", MetricsMiddleware(s.detailsHandler.Handle(area.KindRegion), "details_region"))
		r.Get("/prefectures/{areaCode}", MetricsMiddleware(s.detailsHandler.Handle(area.KindPrefecture), "details_prefecture"))
		r.Get("/cities/{areaCode}", MetricsMiddleware(s.detailsHandler.Handle(area.KindMunicipality), "details_city"))
	})

	r.Route("/elections/{electionCode}/overview", func(r chi.Router) {
		r.Get("/national", MetricsMiddleware(s.overviewHandler.Handle(area.KindNational), "overview_national"))
		r.Get("/regions/{areaCode}", MetricsMiddleware(s.overviewHandler.Handle(area.KindRegion), "overview_region"))
		r.Get("/prefectures/{areaCode}", MetricsMiddleware(s.overviewHandler.Handle(area.KindPrefecture), "overview_prefecture"))
		r.Get("/cities/{areaCode}", MetricsMiddleware(s.overviewHandler.Handle(area.KindMunicipality), "overview_city"))
	})
}

// NewRouter returns a chi router with the common middleware and every API route.
func NewRouter(ctx context.Context, deps Dependencies, statsProvider StatsProvider) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	NewServer(deps, statsProvider).Register(ctx, r)
	return r
}

// scopePath returns the path segment naming a scope, e.g. "regions/3".
func scopePath(scope area.Scope) string {
	switch scope.Kind() {
	case area.KindRegion:
		return "regions/" + url.PathEscape(scope.Code())
	case area.KindPrefecture:
		return "prefectures/" + url.PathEscape(scope.Code())
	case area.KindMunicipality:
		return "cities/" + url.PathEscape(scope.Code())
	default:
		return "national"
	}
}

func scopeFromRequest(r *http.Request, kind area.ScopeKind) (area.Scope, error) {
	return area.NewScope(kind, chi.URLParam(r, "areaCode"))
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// writeServiceError maps service failures to responses. target builds the
// redirect location for a moved area.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error, target func(area.Scope) string) {
	var redirect *service.RedirectError
	switch {
	case errors.As(err, &redirect):
		loc := target(redirect.Scope)
		if r.URL.RawQuery != "" {
			loc += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, loc, http.StatusMovedPermanently)
	case errors.Is(err, service.ErrElectionNotFound):
		writeMessage(w, http.StatusNotFound, msgElectionNotFound)
	case errors.Is(err, service.ErrPartyNotFound):
		writeMessage(w, http.StatusNotFound, msgPartyNotFound)
	case errors.Is(err, service.ErrAreaNotFound):
		writeMessage(w, http.StatusNotFound, msgAreaNotFound)
	case errors.Is(err, ranking.ErrInvalidSort):
		writeMessage(w, http.StatusBadRequest, ErrInvalidSort.Error())
	case errors.Is(err, area.ErrInvalidUnit):
		writeMessage(w, http.StatusBadRequest, ErrInvalidUnit.Error())
	case errors.Is(err, ranking.ErrInvalidPage):
		writeMessage(w, http.StatusBadRequest, ErrInvalidPage.Error())
	default:
		log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}
