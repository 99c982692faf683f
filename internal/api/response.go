package api

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError replies with the {error, message} shape every failure
// uses: error is a status category, message is human-readable.
func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, errorResponse{Error: category, Message: message})
}

// writeRaw serves a stored payload byte-for-byte.
func writeRaw(w http.ResponseWriter, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
