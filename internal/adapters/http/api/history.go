package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/pkg/logger"
)

// HistoryHandler serves a party's results in one area across elections.
type HistoryHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps Dependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps, logger: logger.Get().Named("api.history")}
}

type historyMeta struct {
	Party string `json:"party"`
	Unit  string `json:"unit"`
}

type historyResponse struct {
	Data []model.HistoryPoint `json:"data"`
	Meta historyMeta          `json:"meta"`
}

// Handle returns the handler for one scope kind.
func (h *HistoryHandler) Handle(kind area.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyCode := chi.URLParam(r, "partyCode")
		scope, err := scopeFromRequest(r, kind)
		if err != nil {
			writeServiceError(w, r, h.logger, err, nil)
			return
		}

		res, err := h.deps.History(r.Context(), service.HistoryRequest{PartyCode: partyCode, Scope: scope})
		if err != nil {
			writeServiceError(w, r, h.logger, err, func(s area.Scope) string {
				return "/parties/" + partyCode + "/history/" + scopePath(s)
			})
			return
		}

		points := res.Points
		if points == nil {
			points = []model.HistoryPoint{}
		}
		writeJSON(w, http.StatusOK, historyResponse{
			Data: points,
			Meta: historyMeta{Party: res.Party.Code, Unit: res.Unit.String()},
		})
	}
}
