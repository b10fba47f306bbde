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

// TasksHandler handles personal daily to-do entries. Every route is
// token-gated by the router.
type TasksHandler struct {
	db *storage.MySQLClient
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(db *storage.MySQLClient) *TasksHandler {
	return &TasksHandler{db: db}
}

// Create handles POST /addDailyTask
func (th *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Text == "" {
		writeMessage(w, http.StatusBadRequest, "failed to insert task")
		return
	}

	task := &models.DailyTask{
		Email:     req.Email,
		Text:      req.Text,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}

	if err := th.db.CreateDailyTask(r.Context(), task); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /dailyTask/{email}
func (th *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	tasks, err := th.db.ListDailyTasksByEmail(r.Context(), email)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.DailyTask{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

// SetCompleted handles PATCH /dailyTask/{id}
func (th *TasksHandler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := th.db.SetDailyTaskCompleted(r.Context(), id, req.Completed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "task not found")
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete handles DELETE /dailyTask/delete/{id}
func (th *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := th.db.DeleteDailyTask(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "task not found")
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
