package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mutasim99/note-hive-server/internal/models"
	"github.com/mutasim99/note-hive-server/internal/storage"
	"github.com/mutasim99/note-hive-server/internal/store"
)

// EventsHandler handles personal calendar entries. Every route is
// token-gated by the router.
type EventsHandler struct {
	db *storage.MySQLClient
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(db *storage.MySQLClient) *EventsHandler {
	return &EventsHandler{db: db}
}

// Create handles POST /addEvent
func (eh *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Text == "" {
		writeMessage(w, http.StatusBadRequest, "failed to insert event")
		return
	}

	event := &models.Event{
		Email:     req.Email,
		Text:      req.Text,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}

	if err := eh.db.CreateEvent(r.Context(), event); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// List handles GET /event/{email}
func (eh *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	events, err := eh.db.ListEventsByEmail(r.Context(), email)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// SetCompleted handles PATCH /event/{id}
func (eh *EventsHandler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := eh.db.SetEventCompleted(r.Context(), id, req.Completed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "event not found")
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete handles DELETE /event/delete/{id}
func (eh *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := eh.db.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "event not found")
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
