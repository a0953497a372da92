package api

import (
	"encoding/json"
	"net/http"
)

// The JSON envelope is shared by every form endpoint: 200 with
// {success:true, id, ...}, 400/500 with {error}, 429 with retry guidance.

type errorResponse struct {
	Error string `json:"error"`
}

type rateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
