package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/state"
)

// PhaseControl extends PhaseSource with the manual lock overrides.
// Satisfied by *phase.Engine.
type PhaseControl interface {
	Current() state.PhaseInfo
	LockVote() error
	LockOrder() error
}

// PhaseHandler serves the current phase and the manual lock actions. Locks
// are deliberately not admin-gated: any session page can lock with a
// confirmation, matching the workflow where whoever calls the restaurant
// closes the round.
type PhaseHandler struct {
	engine PhaseControl
}

// NewPhaseHandler creates a new PhaseHandler.
func NewPhaseHandler(engine PhaseControl) *PhaseHandler {
	return &PhaseHandler{engine: engine}
}

// RegisterRoutes registers phase endpoints on the given Chi router.
func (h *PhaseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/phase", h.Current)
	r.Post("/phase/lock-vote", h.LockVote)
	r.Post("/phase/lock-order", h.LockOrder)
}

// Current returns the resolved phase and deadlines.
func (h *PhaseHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Current())
}

// LockVote forces the session out of the vote phase.
func (h *PhaseHandler) LockVote(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LockVote(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Current())
}

// LockOrder forces the session into the result phase.
func (h *PhaseHandler) LockOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LockOrder(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Current())
}
