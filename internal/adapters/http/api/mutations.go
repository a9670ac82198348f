package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/internal/domain/model"
)

// saleRequest is the body of POST /sales. RequestID makes retries safe.
type saleRequest struct {
	RequestID string         `json:"request_id"`
	PlayerID  model.PlayerID `json:"player_id"`
	TeamID    model.TeamID   `json:"team_id"`
	Price     model.Money    `json:"price"`
}

func (s saleRequest) validate() error {
	switch {
	case s.PlayerID <= 0:
		return errors.New("missing player_id")
	case strings.TrimSpace(string(s.TeamID)) == "":
		return errors.New("missing team_id")
	}
	return nil
}

// ratingsRequest is the body of PUT /players/{id}/ratings.
type ratingsRequest struct {
	Batting  *float64 `json:"batting"`
	Bowling  *float64 `json:"bowling"`
	Fielding *float64 `json:"fielding"`
}

func (r ratingsRequest) ratings() (model.Ratings, error) {
	if r.Batting == nil || r.Bowling == nil || r.Fielding == nil {
		return model.Ratings{}, errors.New("batting, bowling and fielding are required")
	}
	return model.Ratings{Batting: *r.Batting, Bowling: *r.Bowling, Fielding: *r.Fielding}, nil
}

type ackResponse struct {
	Status    string      `json:"status"`
	Duplicate bool        `json:"duplicate"`
	RequestID string      `json:"request_id,omitempty"`
	Sale      *model.Sale `json:"sale,omitempty"`
}

// MutationHandler turns requests into writer commands and waits for the
// result.
type MutationHandler struct {
	deps MutationDependencies
}

// NewMutationHandler creates a new mutation handler.
func NewMutationHandler(deps MutationDependencies) *MutationHandler {
	return &MutationHandler{deps: deps}
}

// HandleSale handles POST /sales requests.
func (h *MutationHandler) HandleSale(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sale"
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	tracked := req.RequestID != ""
	if !tracked {
		req.RequestID = uuid.NewString()
	}
	if tracked && h.deps.SeenAndRecord(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, RequestID: req.RequestID})
		return
	}

	res, err := h.submit(r, queue.NewSale(req.RequestID, req.PlayerID, req.TeamID, req.Price))
	if err != nil {
		if tracked {
			h.deps.Unrecord(r.Context(), req.RequestID)
		}
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "accepted", RequestID: req.RequestID, Sale: &res.Sale})
}

// HandleUndo handles POST /undo requests.
func (h *MutationHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	res, err := h.submit(r, queue.NewUndo(uuid.NewString()))
	if err != nil {
		writeDomainError(w, "api.post_undo", err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "undone", Sale: &res.Sale})
}

// HandleReset handles POST /reset requests.
func (h *MutationHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.submit(r, queue.NewReset(uuid.NewString())); err != nil {
		writeDomainError(w, "api.post_reset", err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "reset"})
}

// HandleRatings handles PUT /players/{id}/ratings requests.
func (h *MutationHandler) HandleRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_ratings"
	id, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req ratingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ratings, err := req.ratings()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.submit(r, queue.NewEdit(uuid.NewString(), id, ratings))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Player)
}

// submit enqueues c and waits for the writer. The command's own error is
// returned as err.
func (h *MutationHandler) submit(r *http.Request, c queue.Command) (queue.Result, error) {
	if err := h.deps.Enqueue(r.Context(), c); err != nil {
		return queue.Result{}, err
	}
	res, err := c.Wait(r.Context())
	if err != nil {
		return queue.Result{}, err
	}
	return res, res.Err
}
