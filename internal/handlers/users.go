package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mutasim99/note-hive-server/internal/models"
	"github.com/mutasim99/note-hive-server/internal/storage"
	"github.com/mutasim99/note-hive-server/internal/store"
)

// UsersHandler handles account registration and role lookup
type UsersHandler struct {
	db *storage.MySQLClient
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(db *storage.MySQLClient) *UsersHandler {
	return &UsersHandler{db: db}
}

// CreateUser handles POST /users. New accounts always get the "user"
// role; admins are promoted out of band.
func (uh *UsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	user := &models.User{
		Email:     req.Email,
		Name:      req.Name,
		Role:      "user",
		CreatedAt: time.Now().UTC(),
	}

	if err := uh.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "user already exist")
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{email}
func (uh *UsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	user, err := uh.db.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
