package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"taskmaster/internal/store"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store store.Store
}

// New creates a new Handlers instance.
func New(s store.Store) *Handlers {
	return &Handlers{store: s}
}

// errorBody is the failure payload shape: {"message": "..."}.
type errorBody struct {
	Message string `json:"message"`
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// respondError sends an error response with a message body.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, errorBody{Message: message})
}

func respondServerError(w http.ResponseWriter, err error) {
	log.Printf("internal server error: %v", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}
