package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunchvote/api/internal/auth"
)

// PinGate is the slice of the auth gate needed by auth handlers.
type PinGate interface {
	Verify(pin string) auth.Verdict
	SetPin(pin string) error
	PinSet() bool
}

// AuthHandler handles PIN verification and first-run PIN setup.
type AuthHandler struct {
	gate      PinGate
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(gate PinGate, jwtSecret string) *AuthHandler {
	return &AuthHandler{gate: gate, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/verify", h.Verify)
	r.Post("/auth/pin", h.SetPin)
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type verifyResponse struct {
	auth.Verdict
	Token string `json:"token,omitempty"`
}

// Verify checks the PIN and, on success against a stored digest, issues an
// admin token. The verdict is returned as data in every case: incorrect and
// locked are 200 responses, not errors, so the UI can show the lockout
// unlock time.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	verdict := h.gate.Verify(req.Pin)
	resp := verifyResponse{Verdict: verdict}
	if verdict.OK && verdict.Reason == "" {
		token, err := auth.GenerateAdminToken(h.jwtSecret)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp.Token = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetPin stores the PIN. Only the first-run bootstrap (no PIN stored yet)
// may call it; once a digest exists the PIN is immutable over the API and
// further calls are refused.
func (h *AuthHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	if h.gate.PinSet() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "pin already set"})
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.gate.SetPin(req.Pin); err != nil {
		if errors.Is(err, auth.ErrPinTooShort) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	token, err := auth.GenerateAdminToken(h.jwtSecret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
