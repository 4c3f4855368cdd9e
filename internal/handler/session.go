package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/state"
)

// SessionStore is the read side of the state repository used by the public
// session endpoints.
type SessionStore interface {
	Snapshot() *state.Snapshot
	Settings() state.Settings
	Names() []string
	Restaurants(activeOnly bool) []state.Restaurant
	Menus() map[string]state.Menu
	VoteHistory() map[string]map[string]string
	OrderHistory() map[string]map[string]state.Order
}

// SessionHandler serves the read-only session views every page needs.
type SessionHandler struct {
	store SessionStore
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// RegisterRoutes registers the public read endpoints.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.State)
	r.Get("/names", h.Names)
	r.Get("/restaurants", h.Restaurants)
	r.Get("/menus", h.Menus)
	r.Get("/history/votes", h.VoteHistory)
	r.Get("/history/orders", h.OrderHistory)
}

// State returns the full current snapshot.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// Names returns the roster, sorted ascending.
func (h *SessionHandler) Names(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Names())
}

// Restaurants lists the catalog; ?active=1 filters archived entries.
func (h *SessionHandler) Restaurants(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "1"
	writeJSON(w, http.StatusOK, h.store.Restaurants(activeOnly))
}

// Menus returns every menu keyed by restaurant ID.
func (h *SessionHandler) Menus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Menus())
}

// VoteHistory feeds the dashboard charts.
func (h *SessionHandler) VoteHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.VoteHistory())
}

// OrderHistory feeds the dashboard charts.
func (h *SessionHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.OrderHistory())
}
