package handler

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// dateParam resolves the ?date= query, defaulting to the active base date.
func dateParam(r *http.Request, baseDate string) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return baseDate
}
