// Package api serves the auction over JSON: ledger mutations, snapshots
// and the per-team derivations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/compete"
	"github.com/okian/bazaar/internal/domain/dedupe"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/projection"
	"github.com/okian/bazaar/internal/domain/recommend"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	MutationDependencies
	ReadDependencies
}

// MutationDependencies submit commands to the single writer.
type MutationDependencies interface {
	dedupe.Deduper

	// Enqueue hands a command to the writer. Returns queue.ErrFull on
	// backpressure.
	Enqueue(ctx context.Context, c queue.Command) error
}

// ReadDependencies compute derivations from the current snapshot.
type ReadDependencies interface {
	Snapshot() auction.Snapshot
	BidTable(ctx context.Context, team model.TeamID) (recommend.Table, error)
	// Predict uses the team's recommended bid when ownBid is zero.
	Predict(ctx context.Context, player model.PlayerID, team model.TeamID, ownBid model.Money) (compete.Prediction, error)
	Project(ctx context.Context, team model.TeamID, topN int) (projection.Projection, error)
}

// Server wires HTTP routes for the auction API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	mutationHandler *MutationHandler
	stateHandler    *StateHandler
	deriveHandler   *DeriveHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		mutationHandler: NewMutationHandler(deps),
		stateHandler:    NewStateHandler(deps),
		deriveHandler:   NewDeriveHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	mux.HandleFunc("GET /players/{id}/classification", MetricsMiddleware(s.stateHandler.HandleClassification, "classification"))
	mux.HandleFunc("GET /teams/{id}/roster.csv", MetricsMiddleware(s.stateHandler.HandleRosterCSV, "roster"))

	mux.HandleFunc("POST /sales", MetricsMiddleware(s.mutationHandler.HandleSale, "sales"))
	mux.HandleFunc("POST /undo", MetricsMiddleware(s.mutationHandler.HandleUndo, "undo"))
	mux.HandleFunc("POST /reset", MetricsMiddleware(s.mutationHandler.HandleReset, "reset"))
	mux.HandleFunc("PUT /players/{id}/ratings", MetricsMiddleware(s.mutationHandler.HandleRatings, "ratings"))

	mux.HandleFunc("GET /teams/{id}/bids", MetricsMiddleware(s.deriveHandler.HandleBids, "bids"))
	mux.HandleFunc("GET /players/{id}/prediction", MetricsMiddleware(s.deriveHandler.HandlePrediction, "prediction"))
	mux.HandleFunc("GET /teams/{id}/projection", MetricsMiddleware(s.deriveHandler.HandleProjection, "projection"))
}

type errorResponse struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain and queue errors onto status codes.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	constraint := auction.ConstraintOf(err)
	switch {
	case errors.Is(err, auction.ErrUnknownPlayer), errors.Is(err, auction.ErrUnknownTeam):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Constraint: constraint, Message: err.Error()})
	case constraint != "":
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "validation_failed", Constraint: constraint, Message: err.Error()})
	case errors.Is(err, auction.ErrNothingToUndo):
		writeError(w, http.StatusConflict, "nothing_to_undo", err)
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, queue.ErrClosed), errors.Is(err, queue.ErrCanceled),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func playerID(r *http.Request) (model.PlayerID, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, WrapKind("api.player_id", ErrBadRequest, errors.New("player id must be a positive integer"))
	}
	return model.PlayerID(id), nil
}

func teamID(r *http.Request) (model.TeamID, error) {
	id := r.PathValue("id")
	if id == "" {
		return "", WrapKind("api.team_id", ErrBadRequest, errors.New("missing team id"))
	}
	return model.TeamID(id), nil
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, WrapKind("api.query", ErrBadRequest, errors.New(name+" must be a non-negative integer"))
	}
	return v, nil
}
