package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/state"
)

// AdminStore is the mutation slice of the state repository behind the PIN
// gate: settings, roster, catalog, and retention.
type AdminStore interface {
	PatchSettings(p state.SettingsPatch) error
	AddNames(names []string)
	RemoveName(name string)
	UpsertRestaurant(rest state.Restaurant) state.Restaurant
	RemoveRestaurant(id string)
	SetMenu(restaurantID string, m state.Menu) []string
	ClearOldRecords(days int) int
}

// AdminHandler handles the admin-gated mutation endpoints.
type AdminHandler struct {
	store AdminStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// RegisterRoutes registers admin endpoints; the caller mounts them behind
// the admin token middleware.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Patch("/settings", h.PatchSettings)
	r.Post("/names", h.AddNames)
	r.Delete("/names/{name}", h.RemoveName)
	r.Post("/restaurants", h.UpsertRestaurant)
	r.Put("/restaurants/{id}", h.UpsertRestaurantByID)
	r.Delete("/restaurants/{id}", h.RemoveRestaurant)
	r.Put("/menus/{id}", h.SetMenu)
	r.Post("/retention/sweep", h.Sweep)
}

type addNamesRequest struct {
	Names []string `json:"names"`
}

type sweepRequest struct {
	Days int `json:"days"`
}

// PatchSettings merges a shallow settings patch. Phase-relevant changes
// recompute and re-broadcast the phase before this returns.
func (h *AdminHandler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch state.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.store.PatchSettings(patch); err != nil {
		if errors.Is(err, state.ErrInvalidMode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddNames bulk-adds roster names. The body carries a pre-split list; CSV
// and free-text parsing happen client-side.
func (h *AdminHandler) AddNames(w http.ResponseWriter, r *http.Request) {
	var req addNamesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Names) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "names are required"})
		return
	}
	h.store.AddNames(req.Names)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveName drops a participant from the roster.
func (h *AdminHandler) RemoveName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	h.store.RemoveName(name)
	w.WriteHeader(http.StatusNoContent)
}

// UpsertRestaurant creates a restaurant (ID assigned server-side when
// absent).
func (h *AdminHandler) UpsertRestaurant(w http.ResponseWriter, r *http.Request) {
	var rest state.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&rest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if rest.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	writeJSON(w, http.StatusCreated, h.store.UpsertRestaurant(rest))
}

// UpsertRestaurantByID replaces the restaurant with the path ID.
func (h *AdminHandler) UpsertRestaurantByID(w http.ResponseWriter, r *http.Request) {
	var rest state.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&rest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	rest.ID = chi.URLParam(r, "id")
	if rest.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	writeJSON(w, http.StatusOK, h.store.UpsertRestaurant(rest))
}

// RemoveRestaurant deletes a restaurant and its menu.
func (h *AdminHandler) RemoveRestaurant(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveRestaurant(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// SetMenu replaces a restaurant's menu. Integrity warnings (items under an
// unknown category) come back in the response but don't block the write.
func (h *AdminHandler) SetMenu(w http.ResponseWriter, r *http.Request) {
	var menu state.Menu
	if err := json.NewDecoder(r.Body).Decode(&menu); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	warnings := h.store.SetMenu(chi.URLParam(r, "id"), menu)
	writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": warnings})
}

// Sweep purges vote/order buckets older than the retention window. The
// double-confirm lives in the UI; this endpoint is already irreversible.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Days <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be positive"})
		return
	}
	removed := h.store.ClearOldRecords(req.Days)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
