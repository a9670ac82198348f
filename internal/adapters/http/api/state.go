package api

import (
	"fmt"
	"net/http"

	"github.com/okian/bazaar/internal/adapters/repository"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/model"
)

// SnapshotReader exposes the current ledger copy.
type SnapshotReader interface {
	Snapshot() auction.Snapshot
}

type teamView struct {
	model.Team
	Remaining model.Money `json:"remaining"`
	SlotsLeft int         `json:"slots_left"`
	HardCap   model.Money `json:"hard_cap"`
}

type stateResponse struct {
	Rules   auction.Rules  `json:"rules"`
	Players []model.Player `json:"players"`
	Teams   []teamView     `json:"teams"`
	History []model.Sale   `json:"history"`
	Sold    int            `json:"sold"`
	Unsold  int            `json:"unsold"`
}

type classificationResponse struct {
	PlayerID model.PlayerID `json:"player_id"`
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
	Ratings  model.Ratings  `json:"ratings"`
	Overall  float64        `json:"overall"`
	Role     model.Role     `json:"role"`
	Tier     model.Tier     `json:"tier"`
}

// StateHandler serves snapshot reads.
type StateHandler struct {
	deps SnapshotReader
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps SnapshotReader) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleState handles GET /state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, _ *http.Request) {
	snap := h.deps.Snapshot()
	resp := stateResponse{
		Rules:   snap.Rules,
		Players: snap.Players,
		Teams:   make([]teamView, 0, len(snap.Teams)),
		History: snap.History,
		Sold:    snap.Sold(),
		Unsold:  len(snap.Pool()),
	}
	for _, t := range snap.Teams {
		resp.Teams = append(resp.Teams, teamView{Team: t, Remaining: t.Remaining(), SlotsLeft: t.SlotsLeft(), HardCap: snap.HardCap(t)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleClassification handles GET /players/{id}/classification requests.
func (h *StateHandler) HandleClassification(w http.ResponseWriter, r *http.Request) {
	id, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p, ok := h.deps.Snapshot().Player(id)
	if !ok {
		writeDomainError(w, "api.classification", fmt.Errorf("%w: player %d", auction.ErrUnknownPlayer, id))
		return
	}
	writeJSON(w, http.StatusOK, classificationResponse{
		PlayerID: p.ID,
		Name:     p.Name,
		Category: p.Category,
		Ratings:  p.Ratings,
		Overall:  p.Overall,
		Role:     p.Role,
		Tier:     p.Tier,
	})
}

// HandleRosterCSV handles GET /teams/{id}/roster.csv requests.
func (h *StateHandler) HandleRosterCSV(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rows, err := repository.Rows(h.deps.Snapshot(), id)
	if err != nil {
		writeDomainError(w, "api.roster", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(id)+"_roster.csv"))
	w.WriteHeader(http.StatusOK)
	_ = repository.WriteCSV(w, rows)
}
