package types

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error body mapped from err.
func WriteError(w http.ResponseWriter, err error) {
	status, body := FromError(err)
	WriteJSON(w, status, body)
}
