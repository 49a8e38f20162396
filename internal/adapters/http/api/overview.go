package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/pkg/logger"
)

// OverviewHandler serves every party's result in one area.
type OverviewHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewOverviewHandler creates a new overview handler.
func NewOverviewHandler(deps Dependencies) *OverviewHandler {
	return &OverviewHandler{deps: deps, logger: logger.Get().Named("api.overview")}
}

type overviewResponse struct {
	Election         model.Election      `json:"election"`
	PreviousElection *model.Election     `json:"previousElection"`
	Unit             string              `json:"unit"`
	TotalCount       float64             `json:"totalCount"`
	Parties          []model.OverviewRow `json:"parties"`
}

// Handle returns the handler for one scope kind.
func (h *OverviewHandler) Handle(kind area.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := scopeFromRequest(r, kind)
		if err != nil {
			writeServiceError(w, r, h.logger, err, nil)
			return
		}

		electionCode := chi.URLParam(r, "electionCode")
		res, err := h.deps.Overview(r.Context(), service.OverviewRequest{ElectionCode: electionCode, Scope: scope})
		if err != nil {
			writeServiceError(w, r, h.logger, err, func(s area.Scope) string {
				return "/elections/" + electionCode + "/overview/" + scopePath(s)
			})
			return
		}

		parties := res.Parties
		if parties == nil {
			parties = []model.OverviewRow{}
		}
		writeJSON(w, http.StatusOK, overviewResponse{
			Election:         res.Election,
			PreviousElection: res.Previous,
			Unit:             res.Unit.String(),
			TotalCount:       res.TotalCount,
			Parties:          parties,
		})
	}
}
