package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mutasim99/note-hive-server/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeStoreError maps pipeline errors to client responses. Conflicts
// are invariant violations, so they get logged loudly and surface as
// server errors.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "file not found")
	case errors.Is(err, store.ErrConflict):
		log.Printf("ERROR: identifier conflict: %v", err)
		writeMessage(w, http.StatusInternalServerError, "something went wrong")
	default:
		log.Printf("ERROR: %v", err)
		writeMessage(w, http.StatusInternalServerError, "something went wrong")
	}
}
