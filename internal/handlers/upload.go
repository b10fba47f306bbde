package handlers

import (
	"net/http"

	"github.com/mutasim99/note-hive-server/internal/models"
	"github.com/mutasim99/note-hive-server/internal/store"
)

// maxMultipartMemory bounds how much of a multipart body net/http keeps
// in memory; larger file parts are spooled to disk, so the file never
// has to fit in memory.
const maxMultipartMemory = 32 << 20

// UploadHandler handles file upload requests
type UploadHandler struct {
	files *store.FileStore
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(files *store.FileStore) *UploadHandler {
	return &UploadHandler{files: files}
}

// UploadResponse is the body returned for a successful upload
type UploadResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId"`
	Length  int64  `json:"length"`
}

// ServeHTTP handles POST /upload-pdf with a multipart form: one "file"
// part plus semester, department and subject fields
func (uh *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeMessage(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	tags := models.TagSet{
		Semester:   r.FormValue("semester"),
		Department: r.FormValue("department"),
		Subject:    r.FormValue("subject"),
	}
	if tags.Semester == "" || tags.Department == "" || tags.Subject == "" {
		writeMessage(w, http.StatusBadRequest, "all fields are required")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	result, err := uh.files.Upload(r.Context(), store.UploadInput{
		Body:        file,
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Tags:        tags,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Success: true,
		FileID:  result.FileID,
		Length:  result.Length,
	})
}
