package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mutasim99/note-hive-server/internal/models"
	"github.com/mutasim99/note-hive-server/internal/storage"
)

// CatalogHandler serves the read-only course catalog. The catalog is
// seeded out of band; there is no write surface for it.
type CatalogHandler struct {
	db *storage.MySQLClient
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(db *storage.MySQLClient) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListSemesters handles GET /semesters
func (ch *CatalogHandler) ListSemesters(w http.ResponseWriter, r *http.Request) {
	semesters, err := ch.db.ListSemesters(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if semesters == nil {
		semesters = []*models.Semester{}
	}
	writeJSON(w, http.StatusOK, semesters)
}

// ListDepartments handles GET /departments/{semester}
func (ch *CatalogHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	semester := mux.Vars(r)["semester"]

	departments, err := ch.db.ListDepartments(r.Context(), semester)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if departments == nil {
		departments = []string{}
	}
	writeJSON(w, http.StatusOK, departments)
}

// ListSubjects handles GET /subjects/{semester}/{department}
func (ch *CatalogHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	subjects, err := ch.db.ListSubjects(r.Context(), vars["semester"], vars["department"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if subjects == nil {
		subjects = []string{}
	}
	writeJSON(w, http.StatusOK, subjects)
}
