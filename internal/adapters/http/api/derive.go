package api

import (
	"errors"
	"net/http"

	"github.com/okian/bazaar/internal/domain/model"
)

// DeriveHandler serves the per-team derivations.
type DeriveHandler struct {
	deps ReadDependencies
}

// NewDeriveHandler creates a new derivation handler.
func NewDeriveHandler(deps ReadDependencies) *DeriveHandler {
	return &DeriveHandler{deps: deps}
}

// HandleBids handles GET /teams/{id}/bids requests.
func (h *DeriveHandler) HandleBids(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	tbl, err := h.deps.BidTable(r.Context(), id)
	if err != nil {
		writeDomainError(w, "api.bids", err)
		return
	}
	writeJSON(w, http.StatusOK, tbl)
}

// HandlePrediction handles GET /players/{id}/prediction?team=&bid= requests.
func (h *DeriveHandler) HandlePrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.prediction"
	id, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	team := model.TeamID(r.URL.Query().Get("team"))
	if team == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing team query parameter")))
		return
	}
	bid, err := intQuery(r, "bid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	pred, err := h.deps.Predict(r.Context(), id, team, model.Money(bid))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// HandleProjection handles GET /teams/{id}/projection?top= requests.
func (h *DeriveHandler) HandleProjection(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	top, err := intQuery(r, "top")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	proj, err := h.deps.Project(r.Context(), id, top)
	if err != nil {
		writeDomainError(w, "api.projection", err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}
