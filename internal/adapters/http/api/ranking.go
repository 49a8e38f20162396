package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/internal/domain/ranking"
	"github.com/okian/partystats/pkg/logger"
)

const (
	minPage = 1
	maxPage = 1000
)

// RankingHandler serves paginated area rankings.
type RankingHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps Dependencies) *RankingHandler {
	return &RankingHandler{deps: deps, logger: logger.Get().Named("api.ranking")}
}

type rankingMeta struct {
	Sort        ranking.Sort `json:"sort"`
	Unit        string       `json:"unit"`
	CurrentPage int          `json:"currentPage"`
	PageSize    int          `json:"pageSize"`
	TotalItems  int          `json:"totalItems"`
	TotalPages  int          `json:"totalPages"`
}

type rankingResponse struct {
	Data []model.RankingItem `json:"data"`
	Meta rankingMeta         `json:"meta"`
}

// rankingQuery holds validated query parameters. unitName keeps the unit as
// the client spelled it so "city" is echoed back.
type rankingQuery struct {
	sort     ranking.Sort
	unit     area.Unit
	unitName string
	page     int
}

// parseRankingQuery validates sort, unit and page in that order.
func parseRankingQuery(r *http.Request, kind area.ScopeKind) (rankingQuery, error) {
	q := r.URL.Query()

	sort, err := ranking.ParseSort(q.Get("sort"), q.Has("sort"))
	if err != nil {
		return rankingQuery{}, ErrInvalidSort
	}
	unit, err := area.ResolveUnit(kind, q.Get("unit"), q.Has("unit"))
	if err != nil {
		return rankingQuery{}, ErrInvalidUnit
	}
	page := minPage
	if q.Has("page") {
		if page, err = parsePage(q.Get("page")); err != nil {
			return rankingQuery{}, ErrInvalidPage
		}
	}
	unitName := unit.String()
	if q.Has("unit") {
		unitName = q.Get("unit")
	}
	return rankingQuery{sort: sort, unit: unit, unitName: unitName, page: page}, nil
}

// parsePage accepts any numeral with an integral value in range, so "2",
// " 2" and "2.0" are the same page.
func parsePage(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || v < minPage || v > maxPage {
		return 0, ErrInvalidPage
	}
	return int(v), nil
}

// Handle returns the handler for one scope kind.
func (h *RankingHandler) Handle(kind area.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseRankingQuery(r, kind)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		scope, err := scopeFromRequest(r, kind)
		if err != nil {
			writeServiceError(w, r, h.logger, err, nil)
			return
		}

		electionCode := chi.URLParam(r, "electionCode")
		partyCode := chi.URLParam(r, "partyCode")
		res, err := h.deps.Ranking(r.Context(), service.RankingRequest{
			ElectionCode: electionCode,
			PartyCode:    partyCode,
			Scope:        scope,
			Unit:         query.unit,
			Sort:         query.sort,
			Page:         query.page,
		})
		if err != nil {
			writeServiceError(w, r, h.logger, err, func(s area.Scope) string {
				return "/elections/" + electionCode + "/ranking/parties/" + partyCode + "/" + scopePath(s)
			})
			return
		}

		items := res.Page.Items
		if items == nil {
			items = []model.RankingItem{}
		}
		writeJSON(w, http.StatusOK, rankingResponse{
			Data: items,
			Meta: rankingMeta{
				Sort:        res.Sort,
				Unit:        query.unitName,
				CurrentPage: res.Page.CurrentPage,
				PageSize:    res.Page.PageSize,
				TotalItems:  res.Page.TotalItems,
				TotalPages:  res.Page.TotalPages,
			},
		})
	}
}
