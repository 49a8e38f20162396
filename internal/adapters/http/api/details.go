package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/pkg/logger"
)

// DetailsHandler serves a party's record and rank in one area.
type DetailsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewDetailsHandler creates a new details handler.
func NewDetailsHandler(deps Dependencies) *DetailsHandler {
	return &DetailsHandler{deps: deps, logger: logger.Get().Named("api.details")}
}

type detailsMeta struct {
	Election string `json:"election"`
	Unit     string `json:"unit"`
}

type detailsResponse struct {
	Party            model.Party    `json:"party"`
	RankInNational   *model.Rank    `json:"rankInNational,omitempty"`
	RankInPrefecture *model.Rank    `json:"rankInPrefecture,omitempty"`
	Changes          []model.Change `json:"changes"`
	Meta             detailsMeta    `json:"meta"`
}

// Handle returns the handler for one scope kind.
func (h *DetailsHandler) Handle(kind area.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := scopeFromRequest(r, kind)
		if err != nil {
			writeServiceError(w, r, h.logger, err, nil)
			return
		}

		electionCode := chi.URLParam(r, "electionCode")
		partyCode := chi.URLParam(r, "partyCode")
		res, err := h.deps.Details(r.Context(), service.DetailsRequest{
			ElectionCode: electionCode,
			PartyCode:    partyCode,
			Scope:        scope,
		})
		if err != nil {
			writeServiceError(w, r, h.logger, err, func(s area.Scope) string {
				return "/elections/" + electionCode + "/details/parties/" + partyCode + "/" + scopePath(s)
			})
			return
		}

		changes := res.Changes
		if changes == nil {
			changes = []model.Change{}
		}
		writeJSON(w, http.StatusOK, detailsResponse{
			Party:            res.Party,
			RankInNational:   res.RankInNational,
			RankInPrefecture: res.RankInPrefecture,
			Changes:          changes,
			Meta:             detailsMeta{Election: res.Election.Code, Unit: res.Unit.String()},
		})
	}
}
