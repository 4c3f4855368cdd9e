package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/enum"
	"github.com/lunchvote/api/internal/state"
)

// VoteStore is the vote-ledger slice of the state repository.
type VoteStore interface {
	Settings() state.Settings
	RecordVote(date, name, restaurantID string) error
	Votes(date string) map[string]string
	VoteSummary(date string) []state.VoteTally
}

// PhaseSource reports the current phase. Satisfied by *phase.Engine.
type PhaseSource interface {
	Current() state.PhaseInfo
}

// VotesHandler handles the vote ledger endpoints.
type VotesHandler struct {
	store VoteStore
	phase PhaseSource
}

// NewVotesHandler creates a new VotesHandler.
func NewVotesHandler(store VoteStore, phase PhaseSource) *VotesHandler {
	return &VotesHandler{store: store, phase: phase}
}

// RegisterRoutes registers vote endpoints on the given Chi router.
func (h *VotesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/votes", h.List)
	r.Get("/votes/summary", h.Summary)
	r.Post("/votes", h.Record)
}

type recordVoteRequest struct {
	Date         string `json:"date"`
	Name         string `json:"name"`
	RestaurantID string `json:"restaurantId"`
}

// List returns the participant → restaurant map for a date.
func (h *VotesHandler) List(w http.ResponseWriter, r *http.Request) {
	date := dateParam(r, h.store.Settings().BaseDate)
	writeJSON(w, http.StatusOK, h.store.Votes(date))
}

// Summary tallies a date's votes per known restaurant, sorted descending by
// count for display.
func (h *VotesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	date := dateParam(r, h.store.Settings().BaseDate)
	tallies := h.store.VoteSummary(date)
	sortTallies(tallies)
	writeJSON(w, http.StatusOK, tallies)
}

// Record stores a vote. Writes are only accepted while the session is in
// the vote phase; historical ledgers are append-only through the sweeper.
func (h *VotesHandler) Record(w http.ResponseWriter, r *http.Request) {
	if h.phase.Current().Phase != enum.PhaseVote {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "voting is closed"})
		return
	}

	var req recordVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Date == "" {
		req.Date = h.store.Settings().BaseDate
	}

	if err := h.store.RecordVote(req.Date, req.Name, req.RestaurantID); err != nil {
		if errors.Is(err, state.ErrEmptyName) || errors.Is(err, state.ErrNoRestaurant) || errors.Is(err, state.ErrEmptyDate) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sortTallies(tallies []state.VoteTally) {
	// Insertion sort keeps catalog order between equal counts.
	for i := 1; i < len(tallies); i++ {
		for j := i; j > 0 && tallies[j].Count > tallies[j-1].Count; j-- {
			tallies[j], tallies[j-1] = tallies[j-1], tallies[j]
		}
	}
}
