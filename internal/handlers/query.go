package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mutasim99/note-hive-server/internal/models"
	"github.com/mutasim99/note-hive-server/internal/store"
)

// defaultRecentLimit applies when /pdfs/recent is called without a count.
const defaultRecentLimit = 10

// QueryHandler serves metadata listings; it never touches file content
type QueryHandler struct {
	files *store.FileStore
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(files *store.FileStore) *QueryHandler {
	return &QueryHandler{files: files}
}

// ListByTags handles GET /pdfs/{semester}/{department}/{subject}
func (qh *QueryHandler) ListByTags(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filter := models.TagSet{
		Semester:   vars["semester"],
		Department: vars["department"],
		Subject:    vars["subject"],
	}

	files, err := qh.files.ListByTags(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if files == nil {
		files = []*models.FileMetadata{}
	}

	writeJSON(w, http.StatusOK, files)
}

// MostRecent handles GET /pdfs/recent?limit=N
func (qh *QueryHandler) MostRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = parsed
	}

	files, err := qh.files.MostRecent(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if files == nil {
		files = []*models.FileMetadata{}
	}

	writeJSON(w, http.StatusOK, files)
}
