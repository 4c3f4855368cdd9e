package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/summary"
)

// SummaryHandler serves the share texts the caller copies into chat or
// reads over the phone.
type SummaryHandler struct {
	store SessionStore
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(store SessionStore) *SummaryHandler {
	return &SummaryHandler{store: store}
}

// RegisterRoutes registers summary endpoints on the given Chi router.
func (h *SummaryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary/line", h.Line)
	r.Get("/summary/phone", h.Phone)
}

// Line returns the chat-paste summary as plain text.
func (h *SummaryHandler) Line(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, summary.Line)
}

// Phone returns the call-in summary as plain text.
func (h *SummaryHandler) Phone(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, summary.Phone)
}

func (h *SummaryHandler) respond(w http.ResponseWriter, r *http.Request, render func(*state.Snapshot, string) string) {
	snap := h.store.Snapshot()
	date := dateParam(r, snap.Settings.BaseDate)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(render(snap, date)))
}
