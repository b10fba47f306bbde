package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mutasim99/note-hive-server/internal/auth"
)

// TokenHandler issues bearer tokens
type TokenHandler struct {
	verifier *auth.Verifier
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(verifier *auth.Verifier) *TokenHandler {
	return &TokenHandler{verifier: verifier}
}

// ServeHTTP handles POST /jwt
func (th *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	token, err := th.verifier.IssueToken(req.Email)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
