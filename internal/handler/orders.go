package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/enum"
	"github.com/lunchvote/api/internal/state"
)

// OrderStore is the order-ledger slice of the state repository.
type OrderStore interface {
	Settings() state.Settings
	SetOrder(date, name string, o state.Order) (state.Order, error)
	SetPaymentStatus(date, name string, paid bool) bool
	Orders(date string) map[string]state.Order
	ComputeTotals(date string) state.Totals
}

// OrdersHandler handles the order ledger and payment endpoints.
type OrdersHandler struct {
	store OrderStore
	phase PhaseSource
}

// NewOrdersHandler creates a new OrdersHandler.
func NewOrdersHandler(store OrderStore, phase PhaseSource) *OrdersHandler {
	return &OrdersHandler{store: store, phase: phase}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrdersHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/totals", h.Totals)
	r.Put("/orders/{date}/{name}", h.Set)
	r.Patch("/orders/{date}/{name}/payment", h.SetPayment)
}

type paymentRequest struct {
	Paid bool `json:"paid"`
}

// List returns all orders for a date, keyed by participant.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	date := dateParam(r, h.store.Settings().BaseDate)
	writeJSON(w, http.StatusOK, h.store.Orders(date))
}

// Totals returns the reconciliation view for a date: class total, unpaid
// participants, and roster members with no order.
func (h *OrdersHandler) Totals(w http.ResponseWriter, r *http.Request) {
	date := dateParam(r, h.store.Settings().BaseDate)
	writeJSON(w, http.StatusOK, h.store.ComputeTotals(date))
}

// Set replaces a participant's order for a date. A resubmission replaces
// the whole item list; the subtotal is recomputed server-side. Writes are
// only accepted during the order phase.
func (h *OrdersHandler) Set(w http.ResponseWriter, r *http.Request) {
	if h.phase.Current().Phase != enum.PhaseOrder {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "ordering is closed"})
		return
	}

	var order state.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	stored, err := h.store.SetOrder(chi.URLParam(r, "date"), chi.URLParam(r, "name"), order)
	if err != nil {
		if errors.Is(err, state.ErrEmptyDate) || errors.Is(err, state.ErrEmptyName) ||
			errors.Is(err, state.ErrNoRestaurant) || errors.Is(err, state.ErrEmptyOrder) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// SetPayment flips the paid flag of an existing order. The caller page
// toggles this while reconciling; 404 when no order exists for the key.
func (h *OrdersHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !h.store.SetPaymentStatus(chi.URLParam(r, "date"), chi.URLParam(r, "name"), req.Paid) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no order for this participant"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
